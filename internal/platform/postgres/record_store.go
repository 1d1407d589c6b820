package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/store"
)

// DefaultRetention is the number of versions kept per tenant when the
// configured retention is not positive.
const DefaultRetention = 5

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// RecordStoreConfig describes one versioned-record class and its table.
type RecordStoreConfig struct {
	// Class is the record class, for example "payroll_policy".
	Class string
	// Table is the table holding the class. It is interpolated into SQL and
	// must be a plain lower-case identifier.
	Table string
	// Retention is the number of newest versions kept per tenant.
	Retention int
	// Clock returns the store's wall-clock time. Defaults to time.Now.
	Clock func() time.Time
}

// PostgresRecordStore implements the store.RecordStore interface
// using a PostgreSQL table with a JSONB document column.
type PostgresRecordStore struct {
	db        *sql.DB
	class     string
	table     string
	retention int
	clock     func() time.Time
	logger    *slog.Logger
	queries   recordQueries
}

type recordQueries struct {
	lockTenant   string
	selectByID   string
	lockByID     string
	update       string
	deactivate   string
	insert       string
	trim         string
	selectActive string
	listByTenant string
}

// NewPostgresRecordStore creates a new PostgreSQL implementation of the RecordStore interface.
// It accepts a database connection pool that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresRecordStore(db *sql.DB, cfg RecordStoreConfig, logger *slog.Logger) (*PostgresRecordStore, error) {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}
	if strings.TrimSpace(cfg.Class) == "" {
		return nil, fmt.Errorf("record class cannot be empty")
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &PostgresRecordStore{
		db:        db,
		class:     cfg.Class,
		table:     cfg.Table,
		retention: retention,
		clock:     clock,
		logger: logger.With(
			slog.String("component", "record_store"),
			slog.String("record_class", cfg.Class),
		),
		queries: buildRecordQueries(cfg.Table),
	}, nil
}

// Ensure PostgresRecordStore implements store.RecordStore interface
var _ store.RecordStore = (*PostgresRecordStore)(nil)

func buildRecordQueries(table string) recordQueries {
	const columns = "id, tenant_id, document, created_at, updated_at"
	return recordQueries{
		lockTenant: `SELECT pg_advisory_xact_lock(hashtext($1))`,
		selectByID: fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE id = $1 AND tenant_id = $2
		`, columns, table),
		lockByID: fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE id = $1 AND tenant_id = $2
			FOR UPDATE
		`, columns, table),
		update: fmt.Sprintf(`
			UPDATE %s
			SET document = $3, updated_at = $4
			WHERE id = $1 AND tenant_id = $2
		`, table),
		deactivate: fmt.Sprintf(`
			UPDATE %s
			SET document = jsonb_set(document, '{isActive}', 'false'::jsonb), updated_at = $2
			WHERE tenant_id = $1 AND document->'isActive' = 'true'::jsonb
		`, table),
		insert: fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5)
		`, table, columns),
		trim: fmt.Sprintf(`
			DELETE FROM %[1]s
			WHERE tenant_id = $1
			AND id NOT IN (
				SELECT id FROM %[1]s
				WHERE tenant_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			)
		`, table),
		selectActive: fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE tenant_id = $1
			ORDER BY COALESCE(document->'isActive' = 'true'::jsonb, false) DESC, created_at DESC, id DESC
			LIMIT 1
		`, columns, table),
		listByTenant: fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE tenant_id = $1
			ORDER BY created_at DESC, id DESC
		`, columns, table),
	}
}

// Class implements store.RecordStore.Class
func (s *PostgresRecordStore) Class() string {
	return s.class
}

// Retention returns the number of versions kept per tenant.
func (s *PostgresRecordStore) Retention() int {
	return s.retention
}

// Upsert implements store.RecordStore.Upsert
// It runs the create or update path in a single transaction. The labels and
// timestamps come from one clock read taken once the tenant lock (create) or
// row lock (update) is held, not at transaction start, so created_at follows
// commit order between concurrent writers of a tenant.
// Returns store.ErrInvalidEntity for an empty tenant, store.ErrRecordNotFound
// when an update targets a missing record, and wraps every other failure in
// store.ErrTransactionFailed.
func (s *PostgresRecordStore) Upsert(
	ctx context.Context,
	tenantID string,
	input domain.UpsertInput,
) (*domain.VersionedRecord, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("tenant_id", tenantID))

	if strings.TrimSpace(tenantID) == "" {
		log.Warn("record validation failed during upsert",
			slog.String("error", domain.ErrEmptyTenant.Error()))
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTenant)
	}

	var record *domain.VersionedRecord
	err := store.RunInTransaction(logger.WithLogger(ctx, log), s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if input.IsUpdate() {
			record, err = s.update(ctx, tx, tenantID, input)
		} else {
			record, err = s.create(ctx, tx, tenantID, input)
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) && !errors.Is(err, store.ErrInvalidEntity) &&
			!errors.Is(err, store.ErrTransactionFailed) {
			err = fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
		}
		log.Error("record upsert rolled back",
			slog.Bool("update", input.IsUpdate()),
			slog.Bool("retryable", IsRetryable(err)),
			slog.String("error", err.Error()))
		return nil, err
	}

	return record, nil
}

// create retires the tenant's active records, inserts the new version and
// trims history beyond the retention window. q is the upsert transaction.
func (s *PostgresRecordStore) create(
	ctx context.Context,
	q store.DBTX,
	tenantID string,
	input domain.UpsertInput,
) (*domain.VersionedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Serialize creates per tenant so the single-active invariant and the
	// retention count hold under concurrent writers.
	if _, err := q.ExecContext(ctx, s.queries.lockTenant, s.table+":"+tenantID); err != nil {
		log.Error("failed to acquire tenant lock", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	now := s.clock()
	version, code := input.CreateLabels(now)

	result, err := q.ExecContext(ctx, s.queries.deactivate, tenantID, now)
	if err != nil {
		log.Error("failed to deactivate active records", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	deactivated, _ := result.RowsAffected()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate record ID: %w", err)
	}

	// isActive is carried over from the caller's document unchanged.
	record := &domain.VersionedRecord{
		ID:       id,
		TenantID: tenantID,
		Class:    s.class,
		Document: input.Document.
			With(domain.FieldVersion, domain.String(version)).
			With(domain.FieldCode, domain.String(code)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	body, err := record.Document.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if _, err := q.ExecContext(ctx, s.queries.insert,
		record.ID, record.TenantID, string(body), record.CreatedAt, record.UpdatedAt,
	); err != nil {
		log.Error("failed to insert record",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return nil, MapError(err)
	}

	result, err = q.ExecContext(ctx, s.queries.trim, tenantID, s.retention)
	if err != nil {
		log.Error("failed to trim record history",
			slog.String("error", err.Error()),
			slog.Int("retention", s.retention))
		return nil, MapError(err)
	}
	trimmed, _ := result.RowsAffected()

	log.Info("record version created",
		slog.String("record_id", record.ID.String()),
		slog.String("version", version),
		slog.String("code", code),
		slog.Bool("is_active", record.IsActive()),
		slog.Int64("deactivated", deactivated),
		slog.Int64("trimmed", trimmed))
	return record, nil
}

// update patches an existing record in place. The incoming document
// replaces the stored body and labels resolve through UpdateLabels. The
// stored isActive flag always wins over the incoming one: only a create
// changes which record is active.
func (s *PostgresRecordStore) update(
	ctx context.Context,
	q store.DBTX,
	tenantID string,
	input domain.UpsertInput,
) (*domain.VersionedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	id := *input.ID

	existing, err := s.scanRecord(q.QueryRowContext(ctx, s.queries.lockByID, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("record not found for update", slog.String("record_id", id.String()))
			return nil, store.ErrRecordNotFound
		}
		log.Error("failed to load record for update",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, MapError(err)
	}

	now := s.clock()
	version, code := input.UpdateLabels(existing.Document, now)

	doc := input.Document.
		Without(domain.FieldIsActive).
		With(domain.FieldVersion, domain.String(version)).
		With(domain.FieldCode, domain.String(code))
	if v, ok := existing.Document.Get(domain.FieldIsActive); ok {
		doc = doc.With(domain.FieldIsActive, v)
	}
	if input.Document.IsActive() != existing.IsActive() {
		log.Debug("ignoring isActive change on in-place update",
			slog.String("record_id", id.String()),
			slog.Bool("stored_is_active", existing.IsActive()))
	}

	body, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := q.ExecContext(ctx, s.queries.update, id, tenantID, string(body), now)
	if err != nil {
		log.Error("failed to update record",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrRecordNotFound); err != nil {
		return nil, err
	}

	existing.Document = doc
	existing.UpdatedAt = now

	log.Info("record updated in place",
		slog.String("record_id", id.String()),
		slog.String("version", version),
		slog.String("code", code))
	return existing, nil
}

// GetByID implements store.RecordStore.GetByID
// It retrieves a record by ID within the tenant.
// Returns store.ErrRecordNotFound if the record does not exist.
func (s *PostgresRecordStore) GetByID(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*domain.VersionedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving record by ID",
		slog.String("tenant_id", tenantID),
		slog.String("record_id", id.String()))

	record, err := s.scanRecord(s.db.QueryRowContext(ctx, s.queries.selectByID, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("record not found", slog.String("record_id", id.String()))
			return nil, store.ErrRecordNotFound
		}
		log.Error("failed to get record by ID",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, MapError(err)
	}
	return record, nil
}

// GetActive implements store.RecordStore.GetActive
// It returns the active record, or the newest one when none is active.
// Returns store.ErrRecordNotFound if the tenant has no records.
func (s *PostgresRecordStore) GetActive(ctx context.Context, tenantID string) (*domain.VersionedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	record, err := s.scanRecord(s.db.QueryRowContext(ctx, s.queries.selectActive, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("tenant has no records", slog.String("tenant_id", tenantID))
			return nil, store.ErrRecordNotFound
		}
		log.Error("failed to get active record",
			slog.String("error", err.Error()),
			slog.String("tenant_id", tenantID))
		return nil, MapError(err)
	}

	if !record.IsActive() {
		log.Debug("no active record, using latest",
			slog.String("tenant_id", tenantID),
			slog.String("record_id", record.ID.String()))
	}
	return record, nil
}

// ListByTenant implements store.RecordStore.ListByTenant
// It returns the tenant's records newest first.
// Returns an empty slice if there are none.
func (s *PostgresRecordStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.VersionedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, s.queries.listByTenant, tenantID)
	if err != nil {
		log.Error("failed to query records by tenant",
			slog.String("error", err.Error()),
			slog.String("tenant_id", tenantID))
		return nil, MapError(err)
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	records := []*domain.VersionedRecord{}
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			log.Error("failed to scan record row", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("listed records by tenant",
		slog.String("tenant_id", tenantID),
		slog.Int("count", len(records)))
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresRecordStore) scanRecord(row rowScanner) (*domain.VersionedRecord, error) {
	var (
		record domain.VersionedRecord
		body   []byte
	)
	if err := row.Scan(&record.ID, &record.TenantID, &body, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}

	doc, err := domain.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document of record %s: %w", record.ID, err)
	}
	record.Document = doc
	record.Class = s.class
	return &record, nil
}
