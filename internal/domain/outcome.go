package domain

// ProcessingState enumerates the per-subscription milestones of a batch run.
type ProcessingState string

const (
	StatePending         ProcessingState = "pending"
	StateArticlesFetched ProcessingState = "articles_fetched"
	StateSummarized      ProcessingState = "summarized"
	StatePersisted       ProcessingState = "persisted"
	StateSkipped         ProcessingState = "skipped"
)

// Outcome records where one subscription ended up during a run.
type Outcome struct {
	SubscriptionID string
	State          ProcessingState
	NewsletterID   string
	Articles       int
	Err            error
}

// RunReport summarizes one batch run.
type RunReport struct {
	Outcomes []Outcome
}

// Empty reports whether the run found no active subscriptions.
func (r RunReport) Empty() bool {
	return len(r.Outcomes) == 0
}

// Count returns how many outcomes ended in the given state.
func (r RunReport) Count(state ProcessingState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}
