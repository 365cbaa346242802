package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/metrics"
	"NewsletterEngine/internal/payload"
	"NewsletterEngine/internal/ports"
)

const (
	// ArticlesPerSubscription caps the search results fed into one summary.
	ArticlesPerSubscription = 5

	defaultStylePrompt = "Summarize the key points concisely."
	articleDelimiter   = "\n\n---\n\n"
)

// BatchDeps wires all driven adapters into the batch generator.
type BatchDeps struct {
	Subscriptions ports.SubscriptionRepository
	Newsletters   ports.NewsletterRepository
	Searcher      ports.ArticleSearcher
	Generator     ports.Generator
	Notifier      ports.Notifier
	Logger        *slog.Logger
}

// Batch produces one newsletter per active subscription.
type Batch struct {
	subscriptions ports.SubscriptionRepository
	newsletters   ports.NewsletterRepository
	searcher      ports.ArticleSearcher
	generator     ports.Generator
	notifier      ports.Notifier
	logger        *slog.Logger
}

// NewBatch constructs the batch generator.
func NewBatch(deps BatchDeps) *Batch {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		subscriptions: deps.Subscriptions,
		newsletters:   deps.Newsletters,
		searcher:      deps.Searcher,
		generator:     deps.Generator,
		notifier:      deps.Notifier,
		logger:        logger,
	}
}

// Run processes every active subscription in load order. A failure inside one
// subscription is logged and recorded as skipped; only the load step can fail the run.
func (b *Batch) Run(ctx context.Context) (domain.RunReport, error) {
	started := time.Now()

	subs, err := b.subscriptions.ListActiveSubscriptions(ctx)
	if err != nil {
		metrics.RecordBatchRun("fatal", time.Since(started).Seconds())
		return domain.RunReport{}, fmt.Errorf("%w: load subscriptions: %v", domain.ErrPipelineFatal, err)
	}

	if len(subs) == 0 {
		b.logger.Info("no active subscriptions")
		metrics.RecordBatchRun("empty", time.Since(started).Seconds())
		return domain.RunReport{}, nil
	}

	b.logger.Info("batch run started", "subscriptions", len(subs))

	report := domain.RunReport{Outcomes: make([]domain.Outcome, 0, len(subs))}
	for _, sub := range subs {
		outcome := b.process(ctx, sub)
		if outcome.Err != nil {
			b.logger.Warn("subscription skipped",
				"subscription_id", sub.ID,
				"api_query", sub.APIQuery,
				"error", outcome.Err)
		}
		metrics.RecordOutcome(string(outcome.State))
		report.Outcomes = append(report.Outcomes, outcome)
	}

	b.logger.Info("batch run completed",
		"persisted", report.Count(domain.StatePersisted),
		"skipped", report.Count(domain.StateSkipped),
		"elapsed", time.Since(started))
	metrics.RecordBatchRun("completed", time.Since(started).Seconds())
	return report, nil
}

func (b *Batch) process(ctx context.Context, sub domain.Subscription) domain.Outcome {
	outcome := domain.Outcome{SubscriptionID: sub.ID, State: domain.StatePending}
	skip := func(err error) domain.Outcome {
		outcome.State = domain.StateSkipped
		outcome.Err = err
		return outcome
	}

	articles, err := b.fetchArticles(ctx, sub)
	if err != nil {
		return skip(err)
	}
	outcome.State = domain.StateArticlesFetched
	outcome.Articles = len(articles)

	text, err := b.generator.Generate(ctx, buildSummaryPrompt(sub.SummarizationPrompt, articles))
	if err != nil {
		return skip(fmt.Errorf("summarize: %w", err))
	}
	outcome.State = domain.StateSummarized

	content, sources := splitSummary(text, articles)

	issue, err := b.newsletters.SaveNewsletter(ctx, domain.NewNewsletter{
		SubscriptionID: sub.ID,
		Content:        content,
		Sources:        sources,
	})
	if err != nil {
		return skip(fmt.Errorf("%w: insert newsletter: %v", domain.ErrStorage, err))
	}
	outcome.State = domain.StatePersisted
	outcome.NewsletterID = issue.ID

	b.logger.Debug("newsletter persisted",
		"subscription_id", sub.ID,
		"newsletter_id", issue.ID,
		"sources", len(issue.Sources))

	if b.notifier != nil {
		if err := b.notifier.PublishNewsletter(ctx, sub, issue); err != nil {
			b.logger.Warn("notify newsletter", "newsletter_id", issue.ID, "error", err)
		}
	}

	return outcome
}

func (b *Batch) fetchArticles(ctx context.Context, sub domain.Subscription) ([]domain.Article, error) {
	if b.searcher == nil {
		return nil, fmt.Errorf("%w: no search provider configured", domain.ErrSearchService)
	}

	articles, err := b.searcher.Search(ctx, domain.SearchQuery{
		Query:    sub.APIQuery,
		PageSize: ArticlesPerSubscription,
		SortBy:   domain.SortByPublishedAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSearchService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchService, err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w for query %q", domain.ErrNoArticles, sub.APIQuery)
	}
	if len(articles) > ArticlesPerSubscription {
		articles = articles[:ArticlesPerSubscription]
	}
	return articles, nil
}

// splitSummary separates the generated summary from its trailing fenced sources block.
// Without a usable block the text is kept whole and sources come from the articles.
func splitSummary(text string, articles []domain.Article) (string, []domain.Source) {
	var sources []domain.Source
	block, err := payload.UnmarshalLast(text, &sources)
	if err != nil || len(sources) == 0 {
		return text, domain.SourcesFromArticles(articles)
	}
	return payload.Strip(text, block), sources
}

func combineArticles(articles []domain.Article) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", a.Title, a.URL, a.Body()))
	}
	return strings.Join(parts, articleDelimiter)
}

func buildSummaryPrompt(style string, articles []domain.Article) string {
	style = strings.TrimSpace(style)
	if style == "" {
		style = defaultStylePrompt
	}

	return fmt.Sprintf(`Based on the following articles, generate a newsletter summary. Adhere to these summarization instructions:
"%s"

Articles:
%s

Please also include a list of the original sources (Title and URL) at the end of the summary as a JSON array inside a fenced code block tagged as json, like this:
`+"```json"+`
[
  {"title": "Article Title 1", "url": "https://article1.com"},
  {"title": "Article Title 2", "url": "https://article2.com"}
]
`+"```"+`
`, style, combineArticles(articles))
}
