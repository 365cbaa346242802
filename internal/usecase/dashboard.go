package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
)

const (
	defaultDigestLimit = 50
	maxDigestLimit     = 500
)

// Dashboard serves the account-scoped read and settings paths.
type Dashboard struct {
	subscriptions ports.SubscriptionRepository
	newsletters   ports.NewsletterRepository
}

// NewDashboard wires the repositories behind the dashboard and settings pages.
func NewDashboard(subs ports.SubscriptionRepository, newsletters ports.NewsletterRepository) *Dashboard {
	return &Dashboard{subscriptions: subs, newsletters: newsletters}
}

// Subscriptions lists the caller's subscriptions.
func (d *Dashboard) Subscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	subs, err := d.subscriptions.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %v", domain.ErrStorage, err)
	}
	return subs, nil
}

// SetActive toggles is_active on one of the caller's subscriptions.
func (d *Dashboard) SetActive(ctx context.Context, userID, id string, active bool) (domain.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Subscription{}, fmt.Errorf("%w: subscription id is required", domain.ErrInvalidRequest)
	}
	sub, err := d.subscriptions.SetSubscriptionActive(ctx, userID, id, active)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Subscription{}, err
		}
		return domain.Subscription{}, fmt.Errorf("%w: update subscription: %v", domain.ErrStorage, err)
	}
	return sub, nil
}

// Digests returns the caller's newsletters grouped by subscription topic, newest first.
// Subscriptions without issues are still listed so the dashboard can show empty topics.
func (d *Dashboard) Digests(ctx context.Context, userID string, limit int) ([]domain.TopicDigest, error) {
	switch {
	case limit <= 0:
		limit = defaultDigestLimit
	case limit > maxDigestLimit:
		limit = maxDigestLimit
	}

	subs, err := d.Subscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	issues, err := d.newsletters.ListNewslettersByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list newsletters: %v", domain.ErrStorage, err)
	}

	bySub := make(map[string][]domain.Newsletter, len(subs))
	for _, issue := range issues {
		bySub[issue.SubscriptionID] = append(bySub[issue.SubscriptionID], issue)
	}

	digests := make([]domain.TopicDigest, 0, len(subs))
	for _, sub := range subs {
		group := bySub[sub.ID]
		if group == nil {
			group = []domain.Newsletter{}
		}
		digests = append(digests, domain.TopicDigest{
			SubscriptionID: sub.ID,
			Topic:          sub.APIQuery,
			IsActive:       sub.IsActive,
			Issues:         group,
		})
	}
	return digests, nil
}
