// Package feedsearch answers article searches from RSS/Atom search feeds.
package feedsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsletterEngine/internal/config"
	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
)

const queryPlaceholder = "{query}"

// Source fills a feed URL template with the query and parses the result.
type Source struct {
	template string
	parser   *gofeed.Parser
}

var _ ports.ArticleSearcher = (*Source)(nil)

// NewSource wires a gofeed parser; a nil http client gets a 20s timeout.
func NewSource(cfg config.FeedSearchConfig, httpClient *http.Client) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	return &Source{template: strings.TrimSpace(cfg.URLTemplate), parser: parser}
}

// Name identifies the provider inside the registry.
func (s *Source) Name() string {
	return "rss"
}

// Search returns feed items, newest first, capped at query.PageSize.
func (s *Source) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Article, error) {
	if !strings.Contains(s.template, queryPlaceholder) {
		return nil, fmt.Errorf("%w: feed url template must contain %s", domain.ErrSearchService, queryPlaceholder)
	}
	if strings.TrimSpace(query.Query) == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrSearchService)
	}

	feedURL := strings.ReplaceAll(s.template, queryPlaceholder, url.QueryEscape(query.Query))
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", domain.ErrSearchService, err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		source := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			source = item.Author.Name
		}

		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Content:     strings.TrimSpace(item.Content),
			Description: strings.TrimSpace(item.Description),
			Source:      source,
			PublishedAt: publishedAt,
		})
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if query.PageSize > 0 && len(articles) > query.PageSize {
		articles = articles[:query.PageSize]
	}

	return articles, nil
}
