package domain

import (
	"strings"
	"time"
)

// Article is a search hit used as summarization input. It is never persisted.
type Article struct {
	Title       string
	URL         string
	Content     string
	Description string
	Source      string
	PublishedAt time.Time
}

// Body returns the article content, falling back to its description.
func (a Article) Body() string {
	if body := strings.TrimSpace(a.Content); body != "" {
		return body
	}
	return strings.TrimSpace(a.Description)
}

// SearchQuery carries the parameters of a single article search.
type SearchQuery struct {
	Query    string
	PageSize int
	SortBy   string
}

// SortByPublishedAt orders results by publication time, newest first.
const SortByPublishedAt = "publishedAt"
