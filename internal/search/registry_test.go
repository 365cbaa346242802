package search

import (
	"context"
	"strings"
	"testing"

	"NewsletterEngine/internal/domain"
)

type namedSearcher string

func (n namedSearcher) Name() string { return string(n) }

func (n namedSearcher) Search(context.Context, domain.SearchQuery) ([]domain.Article, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedSearcher("rss"))
	reg.Register(namedSearcher("newsapi"))

	got, err := reg.Resolve("newsapi")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Name() != "newsapi" {
		t.Fatalf("unexpected searcher: %s", got.Name())
	}

	_, err = reg.Resolve("bing")
	if err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "[newsapi rss]") {
		t.Fatalf("error should list known providers: %v", err)
	}
}
