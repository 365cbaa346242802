package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/payload"
	"NewsletterEngine/internal/ports"
)

// IntakeRequest is the caller's free-text subscription request.
type IntakeRequest struct {
	Topic               string `json:"topic"`
	Schedule            string `json:"schedule"`
	SummarizationPrompt string `json:"summarization_prompt,omitempty"`
}

// ScheduleValidator rejects schedule expressions the scheduler could not run.
type ScheduleValidator func(spec string) error

// IntakeDeps wires the collaborators of the subscription intake.
type IntakeDeps struct {
	Generator     ports.Generator
	Subscriptions ports.SubscriptionRepository
	Validate      ScheduleValidator
	Logger        *slog.Logger
}

// Intake turns a free-text request into a stored subscription.
type Intake struct {
	generator     ports.Generator
	subscriptions ports.SubscriptionRepository
	validate      ScheduleValidator
	logger        *slog.Logger
}

// NewIntake constructs the intake use case.
func NewIntake(deps IntakeDeps) *Intake {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		generator:     deps.Generator,
		subscriptions: deps.Subscriptions,
		validate:      deps.Validate,
		logger:        logger,
	}
}

type derivation struct {
	APIQuery     string `json:"api_query"`
	CronSchedule string `json:"cron_schedule"`
}

// Create derives a search query and schedule for the caller and persists the subscription.
// userID must already be resolved by the identity collaborator.
func (i *Intake) Create(ctx context.Context, userID string, req IntakeRequest) (domain.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Subscription{}, domain.ErrUnauthorized
	}

	req.Topic = strings.TrimSpace(req.Topic)
	req.Schedule = strings.TrimSpace(req.Schedule)
	if req.Topic == "" || req.Schedule == "" {
		return domain.Subscription{}, fmt.Errorf("%w: topic and schedule are required", domain.ErrInvalidRequest)
	}

	derived, err := i.derive(ctx, req)
	if err != nil {
		return domain.Subscription{}, err
	}

	sub, err := i.subscriptions.CreateSubscription(ctx, domain.NewSubscription{
		UserID:              userID,
		APIQuery:            derived.APIQuery,
		CronSchedule:        derived.CronSchedule,
		SummarizationPrompt: strings.TrimSpace(req.SummarizationPrompt),
	})
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("%w: insert subscription: %v", domain.ErrStorage, err)
	}

	i.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"user_id", userID,
		"api_query", sub.APIQuery,
		"cron_schedule", sub.CronSchedule)
	return sub, nil
}

func (i *Intake) derive(ctx context.Context, req IntakeRequest) (derivation, error) {
	prompt := buildDerivationPrompt(req.Topic, req.Schedule)
	i.logger.Debug("derive subscription", "topic", req.Topic, "schedule", req.Schedule)

	text, err := i.generator.Generate(ctx, prompt)
	if err != nil {
		return derivation{}, fmt.Errorf("derive subscription: %w", err)
	}

	var out derivation
	if _, err := payload.Unmarshal(text, &out); err != nil {
		if errors.Is(err, payload.ErrNoBlock) {
			i.logger.Warn("derivation response had no json block", "response", text)
		}
		return derivation{}, fmt.Errorf("%w: %v", domain.ErrGenerationParse, err)
	}

	out.APIQuery = strings.TrimSpace(out.APIQuery)
	out.CronSchedule = strings.TrimSpace(out.CronSchedule)
	if out.APIQuery == "" {
		return derivation{}, fmt.Errorf("%w: empty api_query", domain.ErrGenerationParse)
	}
	if out.CronSchedule == "" {
		return derivation{}, fmt.Errorf("%w: empty cron_schedule", domain.ErrGenerationParse)
	}
	if i.validate != nil {
		if err := i.validate(out.CronSchedule); err != nil {
			return derivation{}, fmt.Errorf("%w: cron_schedule %q: %v", domain.ErrGenerationParse, out.CronSchedule, err)
		}
	}

	return out, nil
}

func buildDerivationPrompt(topic, schedule string) string {
	return fmt.Sprintf(`You are a helpful assistant that converts natural language into a machine-readable format.
Given a topic and a schedule, generate a JSON object with two keys:
1. "api_query": A search query for a news API.
2. "cron_schedule": A standard five-field cron expression for the schedule.

Respond with the object inside a fenced code block tagged as json.

Topic: %s
Schedule: %s
`, topic, schedule)
}
