package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/platform/postgres"
	"github.com/phrazzld/posting-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.January, 2, 15, 4, 5, 0, time.Local)

var recordColumns = []string{"id", "tenant_id", "document", "created_at", "updated_at"}

// documentArg matches a JSON document argument against a predicate.
type documentArg struct {
	check func(domain.Document) bool
}

func (a documentArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	doc, err := domain.ParseDocument([]byte(s))
	return err == nil && a.check(doc)
}

func labelled(version, code string, active *bool) documentArg {
	return documentArg{check: func(d domain.Document) bool {
		v, _ := d.StringField(domain.FieldVersion)
		c, _ := d.StringField(domain.FieldCode)
		if v != version || c != code {
			return false
		}
		if active == nil {
			return !d.Has(domain.FieldIsActive)
		}
		return d.Has(domain.FieldIsActive) && d.IsActive() == *active
	}}
}

func boolPtr(b bool) *bool { return &b }

func newMockStore(t *testing.T, retention int) (*postgres.PostgresRecordStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := postgres.NewPostgresRecordStore(db, postgres.RecordStoreConfig{
		Class:     "payroll_policy",
		Table:     "payroll_policies",
		Retention: retention,
		Clock:     func() time.Time { return fixedNow },
	}, nil)
	require.NoError(t, err)
	return s, mock
}

func mustDocument(t *testing.T, fields map[string]any) domain.Document {
	t.Helper()
	doc, err := domain.DocumentFromMap(fields)
	require.NoError(t, err)
	return doc
}

func expectCreatePrefix(mock sqlmock.Sqlmock, deactivated int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("payroll_policies:ACME").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payroll_policies\s+SET document = jsonb_set`).
		WithArgs("ACME", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, deactivated))
}

func TestNewPostgresRecordStore(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("defaults retention", func(t *testing.T) {
		t.Parallel()
		s, err := postgres.NewPostgresRecordStore(db, postgres.RecordStoreConfig{
			Class: "posting_policy",
			Table: "posting_policies",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, postgres.DefaultRetention, s.Retention())
		assert.Equal(t, "posting_policy", s.Class())
	})

	t.Run("rejects unsafe table names", func(t *testing.T) {
		t.Parallel()
		for _, table := range []string{"", "Policies", "policies; DROP TABLE x", "1policies"} {
			_, err := postgres.NewPostgresRecordStore(db, postgres.RecordStoreConfig{
				Class: "payroll_policy",
				Table: table,
			}, nil)
			assert.Error(t, err, "table %q should be rejected", table)
		}
	})

	t.Run("rejects empty class", func(t *testing.T) {
		t.Parallel()
		_, err := postgres.NewPostgresRecordStore(db, postgres.RecordStoreConfig{Table: "payroll_policies"}, nil)
		assert.Error(t, err)
	})

	t.Run("panics on nil db", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			_, _ = postgres.NewPostgresRecordStore(nil, postgres.RecordStoreConfig{}, nil)
		})
	})
}

func TestPostgresRecordStore_UpsertCreate(t *testing.T) {
	t.Parallel()

	t.Run("retires active records and inserts a labelled version", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		expectCreatePrefix(mock, 1)
		mock.ExpectExec(`INSERT INTO payroll_policies`).
			WithArgs(sqlmock.AnyArg(), "ACME",
				labelled("20250102-150405", "POL20250102-150405", boolPtr(true)),
				fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM payroll_policies`).
			WithArgs("ACME", 5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			Document: mustDocument(t, map[string]any{"isActive": true, "rate": 1.5}),
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, "ACME", rec.TenantID)
		assert.Equal(t, "payroll_policy", rec.Class)
		assert.Equal(t, "20250102-150405", rec.Version())
		assert.Equal(t, "POL20250102-150405", rec.Code())
		assert.True(t, rec.IsActive())
		assert.Equal(t, fixedNow, rec.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes isActive through and honours explicit labels", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 3)

		version, code := "2025Q1", "Q1-BASE"
		expectCreatePrefix(mock, 0)
		mock.ExpectExec(`INSERT INTO payroll_policies`).
			WithArgs(sqlmock.AnyArg(), "ACME", labelled(version, code, boolPtr(false)), fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM payroll_policies`).
			WithArgs("ACME", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			Document: mustDocument(t, map[string]any{"isActive": false}),
			Version:  &version,
			Code:     &code,
		})
		require.NoError(t, err)
		assert.False(t, rec.IsActive(), "the store must not force the new record active")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("document without isActive stays without it", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		expectCreatePrefix(mock, 1)
		mock.ExpectExec(`INSERT INTO payroll_policies`).
			WithArgs(sqlmock.AnyArg(), "ACME", labelled("20250102-150405", "POL20250102-150405", nil), fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM payroll_policies`).
			WithArgs("ACME", 5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{Document: domain.NewDocument()})
		require.NoError(t, err)
		assert.False(t, rec.IsActive())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil identifier selects create mode", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		nilID := uuid.Nil
		expectCreatePrefix(mock, 0)
		mock.ExpectExec(`INSERT INTO payroll_policies`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM payroll_policies`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		_, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{ID: &nilID, Document: domain.NewDocument()})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRecordStore_UpsertCreateAtomicity(t *testing.T) {
	t.Parallel()

	steps := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock, failure error)
	}{
		{
			name: "lock fails",
			expect: func(mock sqlmock.Sqlmock, failure error) {
				mock.ExpectBegin()
				mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(failure)
			},
		},
		{
			name: "deactivate fails",
			expect: func(mock sqlmock.Sqlmock, failure error) {
				mock.ExpectBegin()
				mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE payroll_policies`).WillReturnError(failure)
			},
		},
		{
			name: "insert fails",
			expect: func(mock sqlmock.Sqlmock, failure error) {
				expectCreatePrefix(mock, 1)
				mock.ExpectExec(`INSERT INTO payroll_policies`).WillReturnError(failure)
			},
		},
		{
			name: "retention cleanup fails after insert",
			expect: func(mock sqlmock.Sqlmock, failure error) {
				expectCreatePrefix(mock, 1)
				mock.ExpectExec(`INSERT INTO payroll_policies`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`DELETE FROM payroll_policies`).WillReturnError(failure)
			},
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			t.Parallel()
			s, mock := newMockStore(t, 5)

			failure := errors.New("connection reset")
			step.expect(mock, failure)
			// Nothing may be committed: the whole create is rolled back.
			mock.ExpectRollback()

			rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
				Document: mustDocument(t, map[string]any{"isActive": true}),
			})
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, store.ErrTransactionFailed)
			assert.ErrorIs(t, err, failure)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRecordStore_UpsertUpdate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	created := fixedNow.Add(-24 * time.Hour)
	stored := `{"version":"20250101-150405","code":"POL20250101-150405","isActive":true,"rate":1}`

	t.Run("patches in place keeping labels and activity", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, tenant_id, document, created_at, updated_at\s+FROM payroll_policies\s+WHERE id = \$1 AND tenant_id = \$2\s+FOR UPDATE`).
			WithArgs(id, "ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(id.String(), "ACME", []byte(stored), created, created))
		mock.ExpectExec(`UPDATE payroll_policies\s+SET document = \$3, updated_at = \$4`).
			WithArgs(id, "ACME", documentArg{check: func(d domain.Document) bool {
				rate, _ := d.Get("rate")
				n, _ := rate.AsNumber()
				v, _ := d.StringField(domain.FieldVersion)
				c, _ := d.StringField(domain.FieldCode)
				return n == "2" && v == "20250101-150405" && c == "POL20250101-150405" && d.IsActive()
			}}, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// No insert and no retention delete may run in update mode.
		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			ID:       &id,
			Document: mustDocument(t, map[string]any{"rate": 2}),
		})
		require.NoError(t, err)

		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "20250101-150405", rec.Version())
		assert.Equal(t, "POL20250101-150405", rec.Code())
		assert.True(t, rec.IsActive())
		assert.Equal(t, created, rec.CreatedAt)
		assert.Equal(t, fixedNow, rec.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit version overrides stored label", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		version := "manual-7"
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(id, "ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(id.String(), "ACME", []byte(stored), created, created))
		mock.ExpectExec(`UPDATE payroll_policies`).
			WithArgs(id, "ACME", labelled(version, "POL20250101-150405", boolPtr(true)), fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			ID:       &id,
			Document: mustDocument(t, map[string]any{"isActive": false}),
			Version:  &version,
		})
		require.NoError(t, err)
		assert.Equal(t, version, rec.Version())
		assert.True(t, rec.IsActive(), "an update must not retire the active record")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update cannot reactivate a retired record", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		retired := `{"version":"20241231-080000","code":"POL20241231-080000","isActive":false}`
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(id, "ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(id.String(), "ACME", []byte(retired), created, created))
		mock.ExpectExec(`UPDATE payroll_policies\s+SET document = \$3, updated_at = \$4`).
			WithArgs(id, "ACME", labelled("20241231-080000", "POL20241231-080000", boolPtr(false)), fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Only the locked read and the in-place write may run: reactivating
		// would need the deactivate step that only a create performs.
		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			ID:       &id,
			Document: mustDocument(t, map[string]any{"isActive": true, "rate": 3}),
		})
		require.NoError(t, err)
		assert.False(t, rec.IsActive())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("record without isActive stays without it", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		unflagged := `{"version":"20241231-080000","code":"POL20241231-080000"}`
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(id.String(), "ACME", []byte(unflagged), created, created))
		mock.ExpectExec(`UPDATE payroll_policies`).
			WithArgs(id, "ACME", labelled("20241231-080000", "POL20241231-080000", nil), fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{
			ID:       &id,
			Document: mustDocument(t, map[string]any{"isActive": true}),
		})
		require.NoError(t, err)
		assert.False(t, rec.Document.Has(domain.FieldIsActive))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record rolls back with not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(id, "OTHER").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		rec, err := s.Upsert(context.Background(), "OTHER", domain.UpsertInput{ID: &id, Document: domain.NewDocument()})
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
		assert.NotErrorIs(t, err, store.ErrTransactionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure rolls back", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(id.String(), "ACME", []byte(stored), created, created))
		mock.ExpectExec(`UPDATE payroll_policies`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := s.Upsert(context.Background(), "ACME", domain.UpsertInput{ID: &id, Document: domain.NewDocument()})
		assert.ErrorIs(t, err, store.ErrTransactionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRecordStore_UpsertEmptyTenant(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, 5)

	_, err := s.Upsert(context.Background(), "  ", domain.UpsertInput{Document: domain.NewDocument()})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrEmptyTenant)
	assert.NoError(t, mock.ExpectationsWereMet(), "no transaction should be opened")
}

func TestPostgresRecordStore_Reads(t *testing.T) {
	t.Parallel()

	newer, older := uuid.New(), uuid.New()
	t1, t2 := fixedNow.Add(-time.Hour), fixedNow

	t.Run("GetActive returns the selected row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`ORDER BY COALESCE\(document->'isActive' = 'true'::jsonb, false\) DESC`).
			WithArgs("ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow(newer.String(), "ACME", []byte(`{"isActive":false,"version":"v2"}`), t2, t2))

		rec, err := s.GetActive(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, newer, rec.ID)
		assert.Equal(t, "v2", rec.Version())
		assert.False(t, rec.IsActive(), "latest record is the fallback when none is active")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetActive without records", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`FROM payroll_policies`).
			WithArgs("EMPTY").
			WillReturnRows(sqlmock.NewRows(recordColumns))

		_, err := s.GetActive(context.Background(), "EMPTY")
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
	})

	t.Run("GetByID", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs(older, "ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow(older.String(), "ACME", []byte(`{"code":"C1"}`), t1, t1))
		mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs(older, "OTHER").
			WillReturnRows(sqlmock.NewRows(recordColumns))

		rec, err := s.GetByID(context.Background(), "ACME", older)
		require.NoError(t, err)
		assert.Equal(t, "C1", rec.Code())

		_, err = s.GetByID(context.Background(), "OTHER", older)
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByTenant keeps query order", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
			WithArgs("ACME").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow(newer.String(), "ACME", []byte(`{"isActive":true}`), t2, t2).
				AddRow(older.String(), "ACME", []byte(`{"isActive":false}`), t1, t2))

		records, err := s.ListByTenant(context.Background(), "ACME")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, newer, records[0].ID)
		assert.Equal(t, older, records[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByTenant returns empty slice", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`FROM payroll_policies`).
			WithArgs("EMPTY").
			WillReturnRows(sqlmock.NewRows(recordColumns))

		records, err := s.ListByTenant(context.Background(), "EMPTY")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("corrupt document is reported", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, 5)

		mock.ExpectQuery(`FROM payroll_policies`).
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow(newer.String(), "ACME", []byte(`[1,2]`), t2, t2))

		_, err := s.ListByTenant(context.Background(), "ACME")
		assert.ErrorIs(t, err, domain.ErrNotObject)
	})
}
