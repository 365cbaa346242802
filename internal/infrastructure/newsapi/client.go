package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsletterEngine/internal/config"
	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
)

const (
	defaultEndpoint = "https://newsapi.org"
	everythingPath  = "/v2/everything"
	maxPageSize     = 100
)

// NewsAPI appends "… [+1234 chars]" to truncated content.
var truncationMarker = regexp.MustCompile(`\s*(…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// Client searches the NewsAPI "everything" endpoint.
type Client struct {
	endpoint string
	apiKey   string
	language string
	http     *http.Client
}

var _ ports.ArticleSearcher = (*Client)(nil)

// NewClient builds a client from configuration; a nil http client gets a 15s timeout.
func NewClient(cfg config.NewsAPIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		http:     httpClient,
	}
}

// Name identifies the provider inside the registry.
func (c *Client) Name() string {
	return "newsapi"
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
		Content     string    `json:"content"`
	} `json:"articles"`
}

// Search returns up to query.PageSize articles, newest first.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Article, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: newsapi key is not set", domain.ErrSearchService)
	}

	reqURL, err := c.buildURL(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", "NewsletterEngine/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request articles: %v", domain.ErrSearchService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: newsapi returned %s: %s", domain.ErrSearchService, resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrSearchService, err)
	}
	if decoded.Status != "" && decoded.Status != "ok" {
		return nil, fmt.Errorf("%w: newsapi %s: %s", domain.ErrSearchService, decoded.Code, decoded.Message)
	}

	articles := make([]domain.Article, 0, len(decoded.Articles))
	for _, a := range decoded.Articles {
		// Deleted articles come back as "[Removed]" placeholders.
		if a.URL == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(a.Title),
			URL:         a.URL,
			Content:     cleanText(truncationMarker.ReplaceAllString(a.Content, "")),
			Description: cleanText(a.Description),
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	if query.SortBy == domain.SortByPublishedAt {
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		})
	}
	if query.PageSize > 0 && len(articles) > query.PageSize {
		articles = articles[:query.PageSize]
	}

	return articles, nil
}

func (c *Client) buildURL(query domain.SearchQuery) (string, error) {
	if strings.TrimSpace(query.Query) == "" {
		return "", fmt.Errorf("empty search query")
	}

	parsed, err := url.Parse(c.endpoint + everythingPath)
	if err != nil {
		return "", fmt.Errorf("invalid newsapi endpoint %s: %w", c.endpoint, err)
	}

	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := parsed.Query()
	q.Set("q", query.Query)
	q.Set("pageSize", strconv.Itoa(pageSize))
	if query.SortBy != "" {
		q.Set("sortBy", query.SortBy)
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// cleanText flattens any HTML fragments in NewsAPI fields to plain text.
func cleanText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.ContainsAny(raw, "<&") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
