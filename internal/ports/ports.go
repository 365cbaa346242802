package ports

import (
	"context"
	"time"

	"NewsletterEngine/internal/domain"
)

// ArticleSearcher looks up recent articles for a derived query.
type ArticleSearcher interface {
	Name() string
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.Article, error)
}

// Generator sends a prompt to a generative-text service and returns the raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Identity resolves a bearer token to the owning user id.
type Identity interface {
	CurrentUser(ctx context.Context, token string) (string, error)
}

// SubscriptionRepository persists newsletter subscriptions.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub domain.NewSubscription) (domain.Subscription, error)
	ListActiveSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	SetSubscriptionActive(ctx context.Context, userID, id string, active bool) (domain.Subscription, error)
}

// NewsletterRepository persists generated newsletter issues.
type NewsletterRepository interface {
	SaveNewsletter(ctx context.Context, n domain.NewNewsletter) (domain.Newsletter, error)
	ListNewslettersByUser(ctx context.Context, userID string, limit int) ([]domain.Newsletter, error)
}

// Notifier pushes a freshly generated issue to an outbound channel (Telegram, etc.).
type Notifier interface {
	PublishNewsletter(ctx context.Context, sub domain.Subscription, n domain.Newsletter) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
