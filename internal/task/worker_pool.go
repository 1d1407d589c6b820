package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/posting-api/internal/domain"
)

// WorkerPool manages a pool of workers that process jobs from a shared
// source. It handles graceful shutdown and worker lifecycle.
//
// Jobs leave the source in FIFO order, but with more than one worker they
// may run concurrently and finish out of order. Run a single worker when
// jobs must execute strictly one after another.
type WorkerPool struct {
	// source provides the jobs to be processed
	source JobSource

	// processor runs each job
	processor Processor

	// workerCount is the number of concurrent workers to start
	workerCount int

	// jobTimeout is passed to every worker
	jobTimeout time.Duration

	// workers holds the started workers
	workers []*Worker

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	// logger for structured logging
	logger *slog.Logger

	// errorHandler is called when a job fails
	// If nil, errors are only logged
	errorHandler func(job domain.Job, err error)

	mu      sync.Mutex
	started bool
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent workers to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// JobTimeout bounds each job. Zero means no limit.
	JobTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with a single worker,
// which keeps jobs strictly ordered.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 1,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(source JobSource, processor Processor, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}

	// Apply defaults for invalid config values
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	// Create a cancelable context for shutdown coordination
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		source:      source,
		processor:   processor,
		workerCount: workerCount,
		jobTimeout:  config.JobTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for job failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(job domain.Job, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool", "worker_count", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		w := NewWorker(p.source, p.processor, WorkerConfig{ID: i, JobTimeout: p.jobTimeout}, p.logger)
		w.SetErrorHandler(p.errorHandler)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			err := w.Run(p.ctx)
			if !errors.Is(err, ErrWorkerStopped) {
				p.logger.Error("worker exited unexpectedly", "worker_id", w.id, "error", err)
			}
		}()
	}
}

// Stop signals all workers to stop and waits for them to finish their
// current job.
func (p *WorkerPool) Stop() {
	p.logger.Info("stopping worker pool")

	// Signal all workers to stop
	p.cancel()

	// Wait for all workers to finish
	p.wg.Wait()

	p.logger.Info("worker pool stopped")
}

// Stats returns the counters summed over all workers.
func (p *WorkerPool) Stats() WorkerStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total WorkerStats
	for _, w := range p.workers {
		s := w.Stats()
		total.Processed += s.Processed
		total.Failed += s.Failed
	}
	return total
}
