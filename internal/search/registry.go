package search

import (
	"fmt"
	"sort"

	"NewsletterEngine/internal/ports"
)

// Registry keeps a mapping from provider names to their searcher implementations.
type Registry struct {
	searchers map[string]ports.ArticleSearcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{searchers: map[string]ports.ArticleSearcher{}}
}

// Register adds or replaces a searcher implementation.
func (r *Registry) Register(searcher ports.ArticleSearcher) {
	if r.searchers == nil {
		r.searchers = map[string]ports.ArticleSearcher{}
	}
	r.searchers[searcher.Name()] = searcher
}

// Resolve returns a searcher by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.ArticleSearcher, error) {
	if searcher, ok := r.searchers[name]; ok {
		return searcher, nil
	}
	return nil, fmt.Errorf("search provider %q is not registered (known: %v)", name, r.Names())
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.searchers))
	for name := range r.searchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
