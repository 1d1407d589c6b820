package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/events"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/store"
)

// Record classes served by the application.
const (
	PayrollPolicyClass = "payroll_policy"
	PostingPolicyClass = "posting_policy"
)

// PolicyService provides versioned record operations for every registered class.
type PolicyService interface {
	// Upsert creates or patches a record of the class for the tenant.
	// The returned bool reports whether a new record was created.
	Upsert(ctx context.Context, class, tenantID string, input domain.UpsertInput) (*domain.VersionedRecord, bool, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, class, tenantID string, id uuid.UUID) (*domain.VersionedRecord, error)

	// GetActive retrieves the tenant's current record of the class: the
	// active one, else the newest.
	GetActive(ctx context.Context, class, tenantID string) (*domain.VersionedRecord, error)

	// List retrieves the tenant's retained records of the class, newest first.
	List(ctx context.Context, class, tenantID string) ([]*domain.VersionedRecord, error)

	// Classes returns the registered classes, sorted.
	Classes() []string
}

// policyServiceImpl implements the PolicyService interface
type policyServiceImpl struct {
	stores       map[string]store.RecordStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewPolicyService creates a PolicyService over the given stores, keyed by
// their Class. eventEmitter may be nil, in which case no events are emitted.
// It returns an error if no store is given or two stores share a class.
func NewPolicyService(
	recordStores []store.RecordStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (PolicyService, error) {
	if len(recordStores) == 0 {
		return nil, &ServiceError{
			Service:   "policy",
			Operation: "create_service",
			Message:   "at least one record store is required",
		}
	}

	stores := make(map[string]store.RecordStore, len(recordStores))
	for _, s := range recordStores {
		if s == nil {
			return nil, &ServiceError{Service: "policy", Operation: "create_service", Message: "record store cannot be nil"}
		}
		if _, dup := stores[s.Class()]; dup {
			return nil, &ServiceError{
				Service:   "policy",
				Operation: "create_service",
				Message:   fmt.Sprintf("duplicate record class %q", s.Class()),
			}
		}
		stores[s.Class()] = s
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &policyServiceImpl{
		stores:       stores,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "policy_service"),
	}, nil
}

func (s *policyServiceImpl) storeFor(class string) (store.RecordStore, error) {
	rs, ok := s.stores[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return rs, nil
}

// Upsert implements PolicyService.Upsert
func (s *policyServiceImpl) Upsert(
	ctx context.Context,
	class, tenantID string,
	input domain.UpsertInput,
) (*domain.VersionedRecord, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rs, err := s.storeFor(class)
	if err != nil {
		return nil, false, err
	}

	created := !input.IsUpdate()
	record, err := rs.Upsert(ctx, tenantID, input)
	if err != nil {
		return nil, false, NewServiceError("policy", "upsert", "failed to upsert record", err)
	}

	if created {
		s.announce(ctx, log, record)
	}
	return record, created, nil
}

// announce emits a RecordVersionCreated event for a committed record.
// The write already succeeded, so emitter failures are only logged.
func (s *policyServiceImpl) announce(ctx context.Context, log *slog.Logger, record *domain.VersionedRecord) {
	if s.eventEmitter == nil {
		return
	}

	event, err := events.NewEvent(events.TypeRecordVersionCreated, record.TenantID, events.RecordVersionCreated{
		Class:    record.Class,
		RecordID: record.ID,
		Version:  record.Version(),
		Code:     record.Code(),
		IsActive: record.IsActive(),
	})
	if err == nil {
		err = s.eventEmitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("failed to announce new record version",
			"error", err,
			"tenant_id", record.TenantID,
			"record_class", record.Class,
			"record_id", record.ID)
	}
}

// Get implements PolicyService.Get
func (s *policyServiceImpl) Get(
	ctx context.Context,
	class, tenantID string,
	id uuid.UUID,
) (*domain.VersionedRecord, error) {
	rs, err := s.storeFor(class)
	if err != nil {
		return nil, err
	}
	record, err := rs.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, NewServiceError("policy", "get", "failed to retrieve record", err)
	}
	return record, nil
}

// GetActive implements PolicyService.GetActive
func (s *policyServiceImpl) GetActive(ctx context.Context, class, tenantID string) (*domain.VersionedRecord, error) {
	rs, err := s.storeFor(class)
	if err != nil {
		return nil, err
	}
	record, err := rs.GetActive(ctx, tenantID)
	if err != nil {
		return nil, NewServiceError("policy", "get_active", "failed to retrieve current record", err)
	}
	return record, nil
}

// List implements PolicyService.List
func (s *policyServiceImpl) List(ctx context.Context, class, tenantID string) ([]*domain.VersionedRecord, error) {
	rs, err := s.storeFor(class)
	if err != nil {
		return nil, err
	}
	records, err := rs.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, NewServiceError("policy", "list", "failed to list records", err)
	}
	return records, nil
}

// Classes implements PolicyService.Classes
func (s *policyServiceImpl) Classes() []string {
	return slices.Sorted(maps.Keys(s.stores))
}
