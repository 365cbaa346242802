package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"NewsletterEngine/internal/domain"
)

type memoryStore struct {
	mu          sync.Mutex
	seq         int
	subs        []domain.Subscription
	newsletters []domain.Newsletter

	listErr      error
	createErr    error
	saveErrFor   map[string]error
	createdCalls int
}

func newMemoryStore(subs ...domain.Subscription) *memoryStore {
	return &memoryStore{subs: subs, saveErrFor: map[string]error{}}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) CreateSubscription(_ context.Context, sub domain.NewSubscription) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdCalls++
	if m.createErr != nil {
		return domain.Subscription{}, m.createErr
	}
	row := domain.Subscription{
		ID:                  m.nextID("sub"),
		UserID:              sub.UserID,
		APIQuery:            sub.APIQuery,
		CronSchedule:        sub.CronSchedule,
		SummarizationPrompt: sub.SummarizationPrompt,
		IsActive:            true,
		CreatedAt:           time.Now().UTC(),
	}
	m.subs = append(m.subs, row)
	return row, nil
}

func (m *memoryStore) ListActiveSubscriptions(context.Context) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Subscription
	for _, s := range m.subs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) ListSubscriptionsByUser(_ context.Context, userID string) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) SetSubscriptionActive(_ context.Context, userID, id string, active bool) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].ID == id && m.subs[i].UserID == userID {
			m.subs[i].IsActive = active
			return m.subs[i], nil
		}
	}
	return domain.Subscription{}, domain.ErrNotFound
}

func (m *memoryStore) SaveNewsletter(_ context.Context, n domain.NewNewsletter) (domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErrFor[n.SubscriptionID]; err != nil {
		return domain.Newsletter{}, err
	}
	row := domain.Newsletter{
		ID:             m.nextID("nl"),
		SubscriptionID: n.SubscriptionID,
		Content:        n.Content,
		Sources:        n.Sources,
		CreatedAt:      time.Now().UTC().Add(time.Duration(m.seq) * time.Millisecond),
	}
	m.newsletters = append(m.newsletters, row)
	return row, nil
}

func (m *memoryStore) ListNewslettersByUser(_ context.Context, userID string, limit int) ([]domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := map[string]bool{}
	for _, s := range m.subs {
		if s.UserID == userID {
			owned[s.ID] = true
		}
	}
	var out []domain.Newsletter
	for _, n := range m.newsletters {
		if owned[n.SubscriptionID] {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) newslettersFor(subID string) []domain.Newsletter {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Newsletter
	for _, n := range m.newsletters {
		if n.SubscriptionID == subID {
			out = append(out, n)
		}
	}
	return out
}

type fakeSearcher struct {
	results map[string][]domain.Article
	errs    map[string]error
	queries []domain.SearchQuery
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, q domain.SearchQuery) ([]domain.Article, error) {
	f.queries = append(f.queries, q)
	if err := f.errs[q.Query]; err != nil {
		return nil, err
	}
	return f.results[q.Query], nil
}

type fakeGenerator struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

type recordingNotifier struct {
	published []string
	err       error
}

func (r *recordingNotifier) PublishNewsletter(_ context.Context, _ domain.Subscription, n domain.Newsletter) error {
	r.published = append(r.published, n.ID)
	return r.err
}

func articles(n int) []domain.Article {
	out := make([]domain.Article, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Article{
			Title:       fmt.Sprintf("Article %d", i),
			URL:         fmt.Sprintf("https://news.example/%d", i),
			Description: fmt.Sprintf("description %d", i),
		})
	}
	return out
}
