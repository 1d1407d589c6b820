package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/platform/logger"
)

// RunnerConfig holds configuration for the posting runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// JobTimeout bounds each job. Zero means no limit.
	JobTimeout time.Duration

	// DefaultBatchSize is used when a submission does not specify one
	DefaultBatchSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:      1,
		DefaultBatchSize: domain.DefaultBatchSize,
	}
}

// Runner owns the posting queue and the workers that drain it. It is
// created at process start and stopped at shutdown.
type Runner struct {
	queue  *JobQueue
	pool   *WorkerPool
	config RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a Runner whose workers hand jobs to processor.
func NewRunner(processor Processor, config RunnerConfig, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if config.DefaultBatchSize <= 0 {
		config.DefaultBatchSize = domain.DefaultBatchSize
	}

	queue := NewJobQueue(log)
	pool := NewWorkerPool(queue, processor, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		JobTimeout:  config.JobTimeout,
	}, log)

	return &Runner{
		queue:  queue,
		pool:   pool,
		config: config,
		logger: log.With(slog.String("component", "posting_runner")),
	}
}

// SetErrorHandler sets a function called with every job failure.
// It must be called before Start.
func (r *Runner) SetErrorHandler(handler func(job domain.Job, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit validates and enqueues a posting job. A zero batchSize selects the
// configured default. Submit does not wait for the job and never reports
// its outcome. Returns domain.ErrInvalidJob for invalid input and
// ErrQueueClosed after Stop.
func (r *Runner) Submit(ctx context.Context, tenantID, requestedBy string, batchSize int) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if batchSize == 0 {
		batchSize = r.config.DefaultBatchSize
	}

	job, err := domain.NewJob(tenantID, requestedBy, batchSize)
	if err != nil {
		log.Warn("rejected posting job",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return err
	}

	if err := r.queue.Submit(job); err != nil {
		log.Warn("failed to enqueue posting job",
			slog.String("tenant_id", job.TenantID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to enqueue posting job: %w", err)
	}

	log.Info("posting job enqueued",
		slog.String("tenant_id", job.TenantID),
		slog.String("requested_by", job.ActingIdentity()),
		slog.Int("batch_size", job.BatchSize))
	return nil
}

// Start launches the workers.
func (r *Runner) Start() {
	r.pool.Start()
}

// Stop closes the queue, cancels the workers and waits for them. Jobs still
// queued are dropped.
func (r *Runner) Stop() {
	r.queue.Close()
	r.pool.Stop()
	if pending := r.queue.Len(); pending > 0 {
		r.logger.Warn("dropped queued posting jobs at shutdown", slog.Int("pending_jobs", pending))
	}
}

// QueueLen returns the number of jobs waiting for a worker.
func (r *Runner) QueueLen() int {
	return r.queue.Len()
}

// Stats returns the job counters of all workers.
func (r *Runner) Stats() WorkerStats {
	return r.pool.Stats()
}
