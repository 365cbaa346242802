// Package httpapi exposes the intake, batch engine and dashboard endpoints over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
	"NewsletterEngine/internal/usecase"
)

// Intake is the subscription intake use case as seen by the handlers.
type Intake interface {
	Create(ctx context.Context, userID string, req usecase.IntakeRequest) (domain.Subscription, error)
}

// BatchRunner triggers one batch generation run.
type BatchRunner interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// Dashboard serves the account-scoped read and settings paths.
type Dashboard interface {
	Subscriptions(ctx context.Context, userID string) ([]domain.Subscription, error)
	SetActive(ctx context.Context, userID, id string, active bool) (domain.Subscription, error)
	Digests(ctx context.Context, userID string, limit int) ([]domain.TopicDigest, error)
}

// Deps wires use cases and collaborators into the router.
type Deps struct {
	Identity     ports.Identity
	Intake       Intake
	Batch        BatchRunner
	Dashboard    Dashboard
	TriggerToken string
	// Health is probed by /healthz; nil means always healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

type server struct {
	identity     ports.Identity
	intake       Intake
	batch        BatchRunner
	dashboard    Dashboard
	triggerToken string
	health       func(ctx context.Context) error
	logger       *slog.Logger
}

// NewRouter builds the chi router with all routes mounted.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{
		identity:     deps.Identity,
		intake:       deps.Intake,
		batch:        deps.Batch,
		dashboard:    deps.Dashboard,
		triggerToken: deps.TriggerToken,
		health:       deps.Health,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(cors)

		r.Options("/newsletter-generator", handlePreflight)
		r.With(s.requireUser).Post("/newsletter-generator", s.handleIntake)

		r.Options("/newsletter-generator-engine", handlePreflight)
		r.With(s.requireTrigger).Post("/newsletter-generator-engine", s.handleEngine)
		r.With(s.requireTrigger).Get("/newsletter-generator-engine", s.handleEngine)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors)
		r.Use(s.requireUser)

		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Patch("/subscriptions/{id}", s.handleSetActive)
		r.Get("/newsletters", s.handleDigests)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
