package domain

import "time"

// Subscription is a user's stored request for recurring topic summaries.
type Subscription struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	APIQuery            string    `json:"api_query"`
	CronSchedule        string    `json:"cron_schedule"`
	SummarizationPrompt string    `json:"summarization_prompt,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewSubscription holds the fields Intake derives before the row exists.
type NewSubscription struct {
	UserID              string
	APIQuery            string
	CronSchedule        string
	SummarizationPrompt string
}
