package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsletterEngine/internal/ports"
)

// Scheduler wires the cron driver with the batch generator.
type Scheduler struct {
	driver ports.Scheduler
	batch  *Batch
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring batch runs.
func NewScheduler(driver ports.Scheduler, batch *Batch, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, batch: batch, logger: logger}
}

// Start registers the batch generator with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.batch == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled batch run", "trigger", trigger.Format(time.RFC3339))
		if _, err := s.batch.Run(ctx); err != nil {
			s.logger.Error("scheduled batch run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
