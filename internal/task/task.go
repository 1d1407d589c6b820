package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
)

// Common errors returned by the queue and its workers
var (
	// ErrQueueClosed is returned by Submit after Close, and by Next once the
	// queue is closed and drained.
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrWorkerStopped wraps the reason a worker loop ended: cancellation of
	// its context or a closed queue. It never marks a job failure.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrProcessorPanic is wrapped into the failure of a job whose processor panicked.
	ErrProcessorPanic = errors.New("processor panicked")
)

// Processor runs the posting process for one tenant.
// Version: 1.0
type Processor interface {
	// Process posts up to batchSize pending items for the tenant on behalf
	// of actingIdentity. It should return promptly once ctx is cancelled.
	Process(ctx context.Context, tenantID, actingIdentity string, batchSize int) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, tenantID, actingIdentity string, batchSize int) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, tenantID, actingIdentity string, batchSize int) error {
	return f(ctx, tenantID, actingIdentity, batchSize)
}

// JobSource provides jobs to workers.
// Version: 1.0
type JobSource interface {
	// Next blocks until a job is available, ctx is done or the source is
	// closed and drained.
	Next(ctx context.Context) (domain.Job, error)
}

// JobSink accepts jobs from producers.
// Version: 1.0
type JobSink interface {
	// Submit enqueues a job without blocking.
	Submit(job domain.Job) error
}

// JobFailure describes a job whose processing failed. Workers log it and
// pass it to their error handler; it is never returned to the producer.
type JobFailure struct {
	Job   domain.Job
	RunID uuid.UUID
	Err   error
}

// Error implements the error interface.
func (f *JobFailure) Error() string {
	return fmt.Sprintf("posting job for tenant %s failed: %v", f.Job.TenantID, f.Err)
}

// Unwrap returns the processor error.
func (f *JobFailure) Unwrap() error {
	return f.Err
}
