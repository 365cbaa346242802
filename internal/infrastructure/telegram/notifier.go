package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// Telegram rejects messages longer than 4096 characters.
	maxMessageRunes = 4096
)

// Notifier sends generated newsletters to one operator Telegram chat via bot API.
// It is an operator feed, not per-user delivery.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   client,
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// PublishNewsletter posts the issue text followed by its sources.
func (n *Notifier) PublishNewsletter(ctx context.Context, sub domain.Subscription, issue domain.Newsletter) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(sub, issue))
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatMessage(sub domain.Subscription, issue domain.Newsletter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n%s", sub.APIQuery, issue.Content)
	if len(issue.Sources) > 0 {
		sb.WriteString("\n\nSources:")
		for _, s := range issue.Sources {
			fmt.Fprintf(&sb, "\n- %s: %s", s.Title, s.URL)
		}
	}

	text := []rune(sb.String())
	if len(text) > maxMessageRunes {
		text = append(text[:maxMessageRunes-1], '…')
	}
	return string(text)
}
