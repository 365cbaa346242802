package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsletterEngine/internal/config"
	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/httpapi"
	"NewsletterEngine/internal/infrastructure/feedsearch"
	"NewsletterEngine/internal/infrastructure/identity"
	"NewsletterEngine/internal/infrastructure/llm"
	"NewsletterEngine/internal/infrastructure/newsapi"
	"NewsletterEngine/internal/infrastructure/scheduler"
	"NewsletterEngine/internal/infrastructure/storage"
	"NewsletterEngine/internal/infrastructure/telegram"
	"NewsletterEngine/internal/logging"
	"NewsletterEngine/internal/metrics"
	"NewsletterEngine/internal/ports"
	"NewsletterEngine/internal/search"
	"NewsletterEngine/internal/usecase"
	"NewsletterEngine/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	repo      *storage.SQLRepository
	hub       *identity.Hub
	identity  ports.Identity
	intake    *usecase.Intake
	batch     *usecase.Batch
	dashboard *usecase.Dashboard
}

// New opens storage and builds every adapter selected by configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repo, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	generator, err := newGenerator(ctx, cfg.LLM)
	if err != nil {
		repo.Close()
		return nil, err
	}

	registry := search.NewRegistry()
	registry.Register(newsapi.NewClient(cfg.Search.NewsAPI, nil))
	registry.Register(feedsearch.NewSource(cfg.Search.Feed, nil))
	searcher, err := registry.Resolve(cfg.Search.Provider)
	if err != nil {
		repo.Close()
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, nil)
	}

	verifier, err := newIdentity(cfg.Auth)
	if err != nil {
		repo.Close()
		return nil, err
	}
	hub := identity.NewHub()

	baseLogger.Info("application configured",
		"database", dialectOf(cfg.Database.DSN),
		"llm", cfg.LLM.Provider,
		"search", searcher.Name(),
		"auth", cfg.Auth.Mode,
		"telegram", notifier != nil)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		repo:     repo,
		hub:      hub,
		identity: identity.NewWatching(verifier, hub),
		intake: usecase.NewIntake(usecase.IntakeDeps{
			Generator:     generator,
			Subscriptions: repo,
			Validate:      scheduler.Validate,
			Logger:        baseLogger.With("component", "intake"),
		}),
		batch: usecase.NewBatch(usecase.BatchDeps{
			Subscriptions: repo,
			Newsletters:   repo,
			Searcher:      searcher,
			Generator:     generator,
			Notifier:      notifier,
			Logger:        baseLogger.With("component", "batch"),
		}),
		dashboard: usecase.NewDashboard(repo, repo),
	}, nil
}

// Generate performs a single batch run.
func (a *Application) Generate(ctx context.Context) (domain.RunReport, error) {
	return a.batch.Run(ctx)
}

// Serve runs the HTTP API (and the cron scheduler when enabled) until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	go a.watchSessions(ctx)

	var sched *usecase.Scheduler
	if a.cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.logger)
		sched = usecase.NewScheduler(driver, a.batch, a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("scheduler started",
			"cron", a.cfg.Scheduler.CronExpression,
			"timezone", a.cfg.Scheduler.Location().String())
	}

	srv := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Identity:     a.identity,
			Intake:       a.intake,
			Batch:        a.batch,
			Dashboard:    a.dashboard,
			TriggerToken: a.cfg.Server.TriggerToken,
			Health:       a.repo.Ping,
			Logger:       a.logger.With("component", "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.New(a.logger, "http.server", slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if sched != nil {
			_ = sched.Stop(context.Background())
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

// Close releases storage and session subscribers.
func (a *Application) Close() error {
	a.hub.Close()
	return a.repo.Close()
}

func (a *Application) watchSessions(ctx context.Context) {
	events, cancel := a.hub.Subscribe(64)
	defer cancel()

	log := a.logger.With("component", "sessions")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordSessionEvent(string(ev.Kind))
			if ev.Kind == identity.SessionRejected {
				log.Debug("session rejected", "error", ev.Err)
				continue
			}
			log.Debug("session resolved", "user_id", ev.UserID)
		}
	}
}

func newGenerator(ctx context.Context, cfg config.LLMConfig) (ports.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		return client, nil
	case "openai", "chatgpt":
		return llm.NewChatGPTClient(cfg.ChatGPT, nil), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newIdentity(cfg config.AuthConfig) (ports.Identity, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", config.AuthModeJWT:
		return identity.NewJWTVerifier(cfg.JWTSecret, cfg.Audience), nil
	case config.AuthModeRemote:
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("auth mode remote requires supabaseUrl")
		}
		return identity.NewRemoteVerifier(cfg.SupabaseURL, cfg.AnonKey, nil), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

func dialectOf(dsn string) string {
	dialect, _, err := storage.ParseDSN(dsn)
	if err != nil {
		return "unknown"
	}
	return string(dialect)
}
