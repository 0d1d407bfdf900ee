package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aidashboard/dashboard-auth/internal/app"
	"github.com/aidashboard/dashboard-auth/internal/config"
	"github.com/aidashboard/dashboard-auth/internal/observability"
)

type options struct {
	envFiles []string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "authd",
		Short:        "Dashboard authentication service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")
	cmd.AddCommand(newServeCommand(opts), newMigrateCommand(opts), newSessionsCommand(opts))
	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))
	return cfg, nil
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runtime, err := observability.InitRuntime(ctx, cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}
			slog.SetDefault(runtime.Logger)

			a, cleanup, err := app.InitializeApp(cfg, runtime)
			if err != nil {
				_ = runtime.Shutdown(context.Background())
				return fmt.Errorf("build app: %w", err)
			}
			defer cleanup()
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, cleanup, err := initAdmin(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			return admin.Migrate(cmd.Context())
		},
	}
}

func initAdmin(opts *options) (*app.Admin, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	return app.InitializeAdmin(cfg)
}
