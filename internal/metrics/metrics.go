// Package metrics provides Prometheus metrics for the newsletter engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchRunsTotal counts batch generator runs by result.
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Name:      "batch_runs_total",
			Help:      "Total number of batch generator runs",
		},
		[]string{"result"},
	)

	// BatchRunDuration measures how long a batch run takes.
	BatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsletter",
			Name:      "batch_run_duration_seconds",
			Help:      "Duration of batch generator runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// SubscriptionOutcomesTotal counts terminal per-subscription states.
	SubscriptionOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Name:      "subscription_outcomes_total",
			Help:      "Per-subscription outcomes of batch runs",
		},
		[]string{"state"},
	)

	// IntakeRequestsTotal counts subscription intake attempts by result.
	IntakeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Name:      "intake_requests_total",
			Help:      "Total number of subscription intake requests",
		},
		[]string{"result"},
	)

	// SessionEventsTotal counts identity session events by kind.
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Name:      "session_events_total",
			Help:      "Identity session events",
		},
		[]string{"kind"},
	)
)

// RecordBatchRun records a finished batch run.
func RecordBatchRun(result string, seconds float64) {
	BatchRunsTotal.WithLabelValues(result).Inc()
	BatchRunDuration.Observe(seconds)
}

// RecordOutcome records a subscription's terminal state.
func RecordOutcome(state string) {
	SubscriptionOutcomesTotal.WithLabelValues(state).Inc()
}

// RecordIntake records an intake attempt.
func RecordIntake(result string) {
	IntakeRequestsTotal.WithLabelValues(result).Inc()
}

// RecordSessionEvent records an identity session event.
func RecordSessionEvent(kind string) {
	SessionEventsTotal.WithLabelValues(kind).Inc()
}
