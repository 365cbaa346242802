package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/usecase"
)

type engineStore struct {
	mu    sync.Mutex
	subs  []domain.Subscription
	saved []string
}

func (e *engineStore) CreateSubscription(context.Context, domain.NewSubscription) (domain.Subscription, error) {
	return domain.Subscription{}, nil
}

func (e *engineStore) ListActiveSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.subs, nil
}

func (e *engineStore) ListSubscriptionsByUser(context.Context, string) ([]domain.Subscription, error) {
	return nil, nil
}

func (e *engineStore) SetSubscriptionActive(context.Context, string, string, bool) (domain.Subscription, error) {
	return domain.Subscription{}, domain.ErrNotFound
}

func (e *engineStore) SaveNewsletter(ctx context.Context, n domain.NewNewsletter) (domain.Newsletter, error) {
	if err := ctx.Err(); err != nil {
		return domain.Newsletter{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, n.SubscriptionID)
	return domain.Newsletter{ID: "nl-" + n.SubscriptionID, SubscriptionID: n.SubscriptionID, Sources: n.Sources}, nil
}

func (e *engineStore) ListNewslettersByUser(context.Context, string, int) ([]domain.Newsletter, error) {
	return nil, nil
}

// ctxSearcher fails like a real HTTP client once its context is cancelled.
type ctxSearcher struct{}

func (ctxSearcher) Name() string { return "ctx" }

func (ctxSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.Article{{Title: q.Query, URL: "https://news.example/" + q.Query}}, nil
}

// disconnectingGenerator cancels the trigger request on its first call.
type disconnectingGenerator struct {
	cancel context.CancelFunc
	calls  int
}

func (g *disconnectingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	g.calls++
	if g.calls == 1 {
		g.cancel()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "summary", nil
}

func TestEngineFinishesRunAfterCallerDisconnects(t *testing.T) {
	store := &engineStore{subs: []domain.Subscription{
		{ID: "s1", APIQuery: "one", IsActive: true},
		{ID: "s2", APIQuery: "two", IsActive: true},
		{ID: "s3", APIQuery: "three", IsActive: true},
	}}

	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &disconnectingGenerator{cancel: cancel}

	batch := usecase.NewBatch(usecase.BatchDeps{
		Subscriptions: store,
		Newsletters:   store,
		Searcher:      ctxSearcher{},
		Generator:     gen,
	})
	handler := NewRouter(Deps{Batch: batch})

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/newsletter-generator-engine", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Error(t, reqCtx.Err(), "request context should have been cancelled mid-run")
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []string{"s1", "s2", "s3"}, store.saved)
}
