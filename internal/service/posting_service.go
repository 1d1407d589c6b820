package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/events"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/task"
)

// PostingBatch is the unit of work handed to a Poster.
type PostingBatch struct {
	TenantID       string
	ActingIdentity string
	BatchSize      int
	// Policy is the tenant's current posting policy, or nil if it has none.
	Policy *domain.VersionedRecord
}

// Poster posts one batch of pending items.
type Poster interface {
	Post(ctx context.Context, batch PostingBatch) error
}

// LogPoster is a Poster that only records each batch in the log.
type LogPoster struct {
	Logger *slog.Logger
}

// Post implements Poster.
func (p LogPoster) Post(ctx context.Context, batch PostingBatch) error {
	log := logger.FromContextOrDefault(ctx, p.Logger)

	attrs := []any{
		"tenant_id", batch.TenantID,
		"acting_identity", batch.ActingIdentity,
		"batch_size", batch.BatchSize,
	}
	if batch.Policy != nil {
		attrs = append(attrs,
			"policy_id", batch.Policy.ID,
			"policy_version", batch.Policy.Version(),
			"policy_code", batch.Policy.Code())
	}
	log.InfoContext(ctx, "posting batch", attrs...)
	return nil
}

// PostingService accepts posting requests and processes posting jobs.
type PostingService interface {
	task.Processor

	// RequestPosting validates a posting request and publishes it. A
	// batchSize of zero is published as is and resolved by the runner from
	// its configured default.
	RequestPosting(ctx context.Context, tenantID, requestedBy string, batchSize int) error
}

// postingServiceImpl implements the PostingService interface
type postingServiceImpl struct {
	policies     PolicyService
	poster       Poster
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewPostingService creates a PostingService. poster defaults to a LogPoster
// when nil.
func NewPostingService(
	policies PolicyService,
	poster Poster,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (PostingService, error) {
	if policies == nil {
		return nil, &ServiceError{Service: "posting", Operation: "create_service", Message: "policy service cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Service: "posting", Operation: "create_service", Message: "event emitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}
	if poster == nil {
		poster = LogPoster{Logger: logger}
	}

	return &postingServiceImpl{
		policies:     policies,
		poster:       poster,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "posting_service"),
	}, nil
}

// RequestPosting implements PostingService.RequestPosting
func (s *postingServiceImpl) RequestPosting(ctx context.Context, tenantID, requestedBy string, batchSize int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// A zero batch size stays zero so the runner applies its configured
	// default; validation checks the rest of the job.
	job, err := domain.NewJob(tenantID, requestedBy, cmp.Or(batchSize, domain.DefaultBatchSize))
	if err != nil {
		return err
	}

	event, err := events.NewEvent(events.TypePostingRequested, job.TenantID, events.PostingRequest{
		RequestedBy: job.RequestedBy,
		BatchSize:   batchSize,
	})
	if err != nil {
		return NewServiceError("posting", "request", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to request posting", "error", err, "tenant_id", job.TenantID)
		if errors.Is(err, task.ErrQueueClosed) {
			return task.ErrQueueClosed
		}
		return NewServiceError("posting", "request", "failed to publish posting request", err)
	}

	log.Info("posting requested",
		"tenant_id", job.TenantID,
		"requested_by", job.ActingIdentity(),
		"batch_size", batchSize)
	return nil
}

// Process implements task.Processor. It resolves the tenant's posting
// policy and hands the batch to the Poster.
func (s *postingServiceImpl) Process(ctx context.Context, tenantID, actingIdentity string, batchSize int) error {
	policy, err := s.policies.GetActive(ctx, PostingPolicyClass, tenantID)
	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUnknownClass):
		policy = nil
	case err != nil:
		return NewServiceError("posting", "process", "failed to resolve posting policy", err)
	}

	if err := s.poster.Post(ctx, PostingBatch{
		TenantID:       tenantID,
		ActingIdentity: actingIdentity,
		BatchSize:      batchSize,
		Policy:         policy,
	}); err != nil {
		return NewServiceError("posting", "process", "failed to post batch", err)
	}
	return nil
}
