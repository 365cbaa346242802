package domain

import "time"

// Source is a {title, url} reference attached to a generated newsletter.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Newsletter is one generated summary issue tied to a subscription.
type Newsletter struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	Content        string    `json:"content"`
	Sources        []Source  `json:"sources"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewNewsletter is the batch output for one subscription before insertion.
type NewNewsletter struct {
	SubscriptionID string
	Content        string
	Sources        []Source
}

// TopicDigest groups the newsletters of one subscription for the dashboard.
type TopicDigest struct {
	SubscriptionID string       `json:"subscription_id"`
	Topic          string       `json:"topic"`
	IsActive       bool         `json:"is_active"`
	Issues         []Newsletter `json:"issues"`
}

// SourcesFromArticles derives {title, url} pairs in article order.
func SourcesFromArticles(articles []Article) []Source {
	sources := make([]Source, 0, len(articles))
	for _, a := range articles {
		sources = append(sources, Source{Title: a.Title, URL: a.URL})
	}
	return sources
}
