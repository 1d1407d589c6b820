package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
)

// RecordStore defines persistence for one class of versioned records
// (for example payroll policies). All operations are scoped to a tenant.
// Version: 1.0
type RecordStore interface {
	// Class returns the record class served by this store.
	Class() string

	// Upsert creates a new active-version candidate or patches an existing
	// record, atomically.
	//
	// Without an ID it deactivates the tenant's active records, inserts the
	// new record with resolved version/code labels and trims versions beyond
	// the retention window. With an ID it patches that record in place,
	// keeping its stored isActive flag, and returns ErrRecordNotFound when
	// the ID does not belong to the tenant.
	// Any other failure is wrapped in ErrTransactionFailed; no partial state
	// is ever committed.
	Upsert(ctx context.Context, tenantID string, input domain.UpsertInput) (*domain.VersionedRecord, error)

	// GetByID retrieves a record by ID within the tenant.
	// Returns ErrRecordNotFound if it does not exist.
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.VersionedRecord, error)

	// GetActive returns the tenant's active record, falling back to the most
	// recently created one. Returns ErrRecordNotFound if the tenant has none.
	GetActive(ctx context.Context, tenantID string) (*domain.VersionedRecord, error)

	// ListByTenant returns the tenant's retained records, newest first.
	// Returns an empty slice if there are none.
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.VersionedRecord, error)
}
