package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/posting-api/internal/config"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/events"
	"github.com/phrazzld/posting-api/internal/platform/postgres"
	"github.com/phrazzld/posting-api/internal/service"
	"github.com/phrazzld/posting-api/internal/store"
	"github.com/phrazzld/posting-api/internal/task"
)

// recordTables maps each record class to its table.
var recordTables = []struct {
	class string
	table string
}{
	{service.PayrollPolicyClass, "payroll_policies"},
	{service.PostingPolicyClass, "posting_policies"},
}

// postingTriggerClasses are the classes whose new active versions request
// a posting run for their tenant.
var postingTriggerClasses = []string{service.PostingPolicyClass}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Service interfaces
	policyService  service.PolicyService
	postingService service.PostingService

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Posting pipeline
	runner *task.Runner
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		eventEmitter: events.NewInMemoryEventEmitter(logger),
	}

	recordStores := make([]store.RecordStore, 0, len(recordTables))
	for _, rt := range recordTables {
		rs, err := postgres.NewPostgresRecordStore(db, postgres.RecordStoreConfig{
			Class:     rt.class,
			Table:     rt.table,
			Retention: cfg.Records.Retention,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s store: %w", rt.class, err)
		}
		recordStores = append(recordStores, rs)
	}

	var err error
	app.policyService, err = service.NewPolicyService(recordStores, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy service: %w", err)
	}

	app.postingService, err = service.NewPostingService(
		app.policyService,
		service.LogPoster{Logger: logger.With("component", "log_poster")},
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posting service: %w", err)
	}

	app.runner = task.NewRunner(app.postingService, task.RunnerConfig{
		WorkerCount:      cfg.Task.WorkerCount,
		JobTimeout:       time.Duration(cfg.Task.JobTimeoutSeconds) * time.Second,
		DefaultBatchSize: cfg.Task.DefaultBatchSize,
	}, logger)

	// Posting requests and new active posting policies become jobs
	postingHandler := task.NewPostingEventHandler(app.runner, postingTriggerClasses, logger)
	app.eventEmitter.RegisterHandler(postingHandler, postingHandler.EventTypes()...)

	logger.Info("application initialized",
		"record_classes", app.policyService.Classes(),
		"default_batch_size", cfg.Task.DefaultBatchSize,
		"system_identity", domain.SystemIdentity)
	return app, nil
}

// Run starts the posting pipeline and the HTTP server, and blocks until ctx
// is cancelled or the server fails. Resources are released before it returns.
func (app *application) Run(ctx context.Context) error {
	app.runner.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the pipeline first so no job touches a closed pool
	if app.runner != nil {
		app.runner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
