package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/platform/logger"
)

// WorkerConfig holds configuration options for a single worker
type WorkerConfig struct {
	// ID identifies the worker in logs
	ID int

	// JobTimeout bounds a single job. Zero means no limit beyond the
	// worker's own context.
	JobTimeout time.Duration
}

// WorkerStats counts the jobs a worker has finished.
type WorkerStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Worker takes jobs from a JobSource one at a time and runs them through a
// Processor. Each job gets its own context and logger. A failed or panicking
// job is logged and reported to the error handler, and the worker moves on
// to the next job.
type Worker struct {
	id           int
	source       JobSource
	processor    Processor
	jobTimeout   time.Duration
	logger       *slog.Logger
	errorHandler func(job domain.Job, err error)

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates a worker reading from source.
func NewWorker(source JobSource, processor Processor, config WorkerConfig, log *slog.Logger) *Worker {
	if source == nil {
		panic("source cannot be nil")
	}
	if processor == nil {
		panic("processor cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		id:         config.ID,
		source:     source,
		processor:  processor,
		jobTimeout: config.JobTimeout,
		logger: log.With(
			slog.String("component", "posting_worker"),
			slog.Int("worker_id", config.ID),
		),
	}
}

// SetErrorHandler sets a function called with every job failure.
// It must be set before Run.
func (w *Worker) SetErrorHandler(handler func(job domain.Job, err error)) {
	w.errorHandler = handler
}

// Stats returns the worker's counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
	}
}

// Run processes jobs until ctx is done or the source is closed and drained.
// It always returns an error wrapping ErrWorkerStopped together with the
// cause (context.Canceled, context.DeadlineExceeded or ErrQueueClosed).
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("starting worker")

	for {
		job, err := w.source.Next(ctx)
		if err != nil {
			w.logger.Info("worker stopped", slog.String("reason", err.Error()))
			return fmt.Errorf("%w: %w", ErrWorkerStopped, err)
		}

		if err := w.runJob(ctx, job); err != nil {
			w.logger.Info("worker stopped during job",
				slog.String("tenant_id", job.TenantID),
				slog.String("reason", err.Error()))
			return fmt.Errorf("%w: %w", ErrWorkerStopped, err)
		}
	}
}

// runJob processes one job in a fresh scope. It returns an error only when
// the job was interrupted by cancellation of the worker's own context.
func (w *Worker) runJob(ctx context.Context, job domain.Job) error {
	runID := uuid.New()
	log := w.logger.With(
		slog.String("run_id", runID.String()),
		slog.String("tenant_id", job.TenantID),
		slog.String("requested_by", job.ActingIdentity()),
		slog.Int("batch_size", job.BatchSize),
	)

	jobCtx := logger.WithLogger(ctx, log)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	log.Info("processing posting job")
	start := time.Now()

	err := w.invoke(jobCtx, job)
	duration := time.Since(start)

	if err == nil {
		w.processed.Add(1)
		log.Info("posting job completed", slog.Int64("duration_ms", duration.Milliseconds()))
		return nil
	}

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctx.Err()
	}

	w.failed.Add(1)
	failure := &JobFailure{Job: job, RunID: runID, Err: err}
	log.Error("posting job failed",
		slog.String("error", err.Error()),
		slog.Int64("duration_ms", duration.Milliseconds()))

	if w.errorHandler != nil {
		w.errorHandler(job, failure)
	}
	return nil
}

// invoke calls the processor, turning a panic into an error.
func (w *Worker) invoke(ctx context.Context, job domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProcessorPanic, r)
		}
	}()
	return w.processor.Process(ctx, job.TenantID, job.ActingIdentity(), job.BatchSize)
}
