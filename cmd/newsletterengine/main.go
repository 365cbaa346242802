package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsletterEngine/internal/app"
	"NewsletterEngine/internal/config"
	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsletterengine",
		Short:         "Topic subscriptions and scheduled AI newsletter generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newGenerateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when enabled, the cron scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if withScheduler {
				cfg.Scheduler.Enabled = true
			}
			return run(cmd.Context(), cfg, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "run the batch generator on scheduler.cronExpression")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the batch generator once over all active subscriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), config.Load(), func(ctx context.Context, a *app.Application) error {
				report, err := a.Generate(ctx)
				if err != nil {
					return err
				}
				if report.Empty() {
					fmt.Fprintln(cmd.OutOrStdout(), "No active subscriptions found.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "persisted=%d skipped=%d\n",
					report.Count(domain.StatePersisted), report.Count(domain.StateSkipped))
				return nil
			})
		},
	}
}

func run(parent context.Context, cfg config.Config, fn func(context.Context, *app.Application) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return err
	}
	defer application.Close()

	if err := fn(ctx, application); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}
