// Package main implements the entry point for the posting API server, which
// stores versioned payroll and posting policies per tenant and runs posting
// jobs in the background.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/posting-api/internal/config"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a database migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("posting-api: %v", err)
	}
}

// run loads configuration, opens the database and either executes a
// migration command or serves until SIGINT or SIGTERM.
func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Task.WorkerCount,
		"retention", cfg.Records.Retention)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, l)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer closeDB(db, l)
		return handleMigrations(ctx, db, migrateCmd, l)
	}

	if cfg.Database.AutoMigrate {
		if err := handleMigrations(ctx, db, postgres.MigrateUp, l); err != nil {
			closeDB(db, l)
			return err
		}
	}

	app, err := newApplication(cfg, l, db)
	if err != nil {
		closeDB(db, l)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func closeDB(db interface{ Close() error }, l *slog.Logger) {
	if err := db.Close(); err != nil {
		l.Error("error closing database connection", "error", err)
	}
}
