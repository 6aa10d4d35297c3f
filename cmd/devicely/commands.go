package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/architeacher/devicely/internal/config"
	infraPostgres "github.com/architeacher/devicely/internal/infrastructure/postgres"
	"github.com/architeacher/devicely/internal/runtime"
	"github.com/architeacher/devicely/migrations"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "devicely",
		Short:         "Device inventory service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newVersionCommand(),
	)

	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			runtime.New().Run()
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return migrate(ctx)
		},
	}
}

func migrate(ctx context.Context) error {
	cfg, err := config.Init()
	if err != nil {
		return fmt.Errorf("initializing configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	pool, err := infraPostgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool, migrations.FS); err != nil {
		return err
	}

	log.Info().Str("database", cfg.Database.Database).Msg("migrations applied")

	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "devicely %s (commit %s)\n", orDefault(config.ServiceVersion, "dev"), orDefault(config.CommitSHA, "unknown"))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
