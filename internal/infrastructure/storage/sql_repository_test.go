package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"NewsletterEngine/internal/domain"
)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()

	repo, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "news.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	seq := 0
	repo.newID = func() string {
		seq++
		return fmt.Sprintf("id-%02d", seq)
	}
	return repo
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		in      string
		dialect Dialect
		native  string
	}{
		{"postgres://u:p@localhost:5432/news?sslmode=disable", DialectPostgres, "postgres://u:p@localhost:5432/news?sslmode=disable"},
		{"postgresql://localhost/news", DialectPostgres, "postgresql://localhost/news"},
		{"sqlite://data/news.db", DialectSQLite, "data/news.db"},
		{"file:news.db?cache=shared", DialectSQLite, "file:news.db?cache=shared"},
	}
	for _, tc := range cases {
		dialect, native, err := ParseDSN(tc.in)
		if err != nil {
			t.Fatalf("ParseDSN(%q): %v", tc.in, err)
		}
		if dialect != tc.dialect || native != tc.native {
			t.Fatalf("ParseDSN(%q) = %s %s", tc.in, dialect, native)
		}
	}
	if _, _, err := ParseDSN("  "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestSubscriptionsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.CreateSubscription(ctx, domain.NewSubscription{
		UserID: "user-1", APIQuery: "ai safety", CronSchedule: "0 9 * * *", SummarizationPrompt: "bullet points",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if !first.IsActive || first.ID != "id-01" {
		t.Fatalf("unexpected subscription: %+v", first)
	}
	if _, err := repo.CreateSubscription(ctx, domain.NewSubscription{
		UserID: "user-2", APIQuery: "rust", CronSchedule: "0 * * * *",
	}); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	active, err := repo.ListActiveSubscriptions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSubscriptions: %v", err)
	}
	if len(active) != 2 || active[0].ID != "id-01" || active[1].ID != "id-02" {
		t.Fatalf("unexpected active order: %+v", active)
	}
	if active[0].SummarizationPrompt != "bullet points" || active[1].SummarizationPrompt != "" {
		t.Fatalf("prompts not round-tripped: %+v", active)
	}
	if !active[0].CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", active[0].CreatedAt, first.CreatedAt)
	}

	if _, err := repo.SetSubscriptionActive(ctx, "user-2", first.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	updated, err := repo.SetSubscriptionActive(ctx, "user-1", first.ID, false)
	if err != nil {
		t.Fatalf("SetSubscriptionActive: %v", err)
	}
	if updated.IsActive {
		t.Fatalf("expected inactive subscription")
	}

	active, err = repo.ListActiveSubscriptions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSubscriptions: %v", err)
	}
	if len(active) != 1 || active[0].UserID != "user-2" {
		t.Fatalf("inactive subscription still listed: %+v", active)
	}

	mine, err := repo.ListSubscriptionsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSubscriptionsByUser: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected user subscriptions: %+v", mine)
	}
}

func TestNewslettersByUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	sub, err := repo.CreateSubscription(ctx, domain.NewSubscription{UserID: "user-1", APIQuery: "ai", CronSchedule: "0 9 * * *"})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	other, err := repo.CreateSubscription(ctx, domain.NewSubscription{UserID: "user-2", APIQuery: "go", CronSchedule: "0 9 * * *"})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	sources := []domain.Source{{Title: "A", URL: "https://a.example"}}
	for i := 0; i < 3; i++ {
		if _, err := repo.SaveNewsletter(ctx, domain.NewNewsletter{
			SubscriptionID: sub.ID,
			Content:        fmt.Sprintf("issue %d", i),
			Sources:        sources,
		}); err != nil {
			t.Fatalf("SaveNewsletter: %v", err)
		}
	}
	if _, err := repo.SaveNewsletter(ctx, domain.NewNewsletter{SubscriptionID: other.ID, Content: "other"}); err != nil {
		t.Fatalf("SaveNewsletter: %v", err)
	}

	issues, err := repo.ListNewslettersByUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListNewslettersByUser: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(issues))
	}
	if issues[0].Content != "issue 2" || issues[1].Content != "issue 1" {
		t.Fatalf("expected newest first: %+v", issues)
	}
	if len(issues[0].Sources) != 1 || issues[0].Sources[0] != sources[0] {
		t.Fatalf("sources not round-tripped: %+v", issues[0].Sources)
	}

	theirs, err := repo.ListNewslettersByUser(ctx, "user-2", 0)
	if err != nil {
		t.Fatalf("ListNewslettersByUser: %v", err)
	}
	if len(theirs) != 1 || len(theirs[0].Sources) != 0 || theirs[0].Sources == nil {
		t.Fatalf("expected one issue with empty sources: %+v", theirs)
	}
}
