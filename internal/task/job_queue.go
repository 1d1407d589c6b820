package task

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/phrazzld/posting-api/internal/domain"
)

// JobQueue is an unbounded, in-memory FIFO of posting jobs. Any number of
// producers may Submit concurrently; Submit never blocks. Memory grows with
// the backlog, since nothing bounds how far producers may run ahead.
//
// Closing the queue rejects new jobs. Jobs already buffered are still handed
// out, after which Next reports ErrQueueClosed.
type JobQueue struct {
	mu     sync.Mutex
	jobs   []domain.Job
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// Ensure JobQueue can feed workers and accept producers
var (
	_ JobSource = (*JobQueue)(nil)
	_ JobSink   = (*JobQueue)(nil)
)

// NewJobQueue creates an empty, open queue.
func NewJobQueue(logger *slog.Logger) *JobQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobQueue{
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		logger: logger.With(slog.String("component", "job_queue")),
	}
}

// Submit appends a job to the queue.
// Returns ErrQueueClosed after Close.
func (q *JobQueue) Submit(job domain.Job) error {
	q.mu.Lock()
	if q.isClosed() {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	q.signal()

	q.logger.Debug("job enqueued",
		slog.String("tenant_id", job.TenantID),
		slog.Int("batch_size", job.BatchSize),
		slog.Int("queue_len", depth))
	return nil
}

// Next removes and returns the oldest job, blocking until one is available.
// It returns ctx.Err() once ctx is done, even when jobs are waiting, and
// ErrQueueClosed once the queue is closed and empty.
func (q *JobQueue) Next(ctx context.Context) (domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Job{}, err
		}

		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs[0] = domain.Job{}
			q.jobs = q.jobs[1:]
			remaining := len(q.jobs)
			if remaining == 0 {
				q.jobs = nil
			}
			q.mu.Unlock()

			// Another consumer may be parked on the wake channel.
			if remaining > 0 {
				q.signal()
			}
			return job, nil
		}
		closed := q.isClosed()
		q.mu.Unlock()

		if closed {
			return domain.Job{}, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		case <-q.wake:
		case <-q.closed:
		}
	}
}

// Consume returns a sequence that yields jobs in FIFO order until ctx is
// done or the queue is closed and drained. Each call starts a new consumer;
// a yielded job is removed from the queue and is never yielded again.
func (q *JobQueue) Consume(ctx context.Context) iter.Seq[domain.Job] {
	return func(yield func(domain.Job) bool) {
		for {
			job, err := q.Next(ctx)
			if err != nil {
				return
			}
			if !yield(job) {
				return
			}
		}
	}
}

// Len returns the number of buffered jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops the queue from accepting jobs. It is safe to call more than once.
func (q *JobQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		close(q.closed)
		pending := len(q.jobs)
		q.mu.Unlock()

		q.logger.Info("job queue closed", slog.Int("pending_jobs", pending))
	})
}

// isClosed must be called with mu held.
func (q *JobQueue) isClosed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

func (q *JobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
