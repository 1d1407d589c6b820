package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/posting-api/internal/platform/postgres"
)

var migrationCommands = []string{
	postgres.MigrateUp,
	postgres.MigrateDown,
	postgres.MigrateReset,
	postgres.MigrateStatus,
	postgres.MigrateVersion,
}

// handleMigrations runs one goose command against db.
func handleMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if !slices.Contains(migrationCommands, command) {
		return fmt.Errorf("unknown migration command %q, expected one of %v", command, migrationCommands)
	}

	logger.Info("executing migrations", "command", command)
	if err := postgres.Migrate(ctx, db, command, logger); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	logger.Info("migrations finished", "command", command)
	return nil
}
