package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/posting-api/internal/platform/postgres"
	"github.com/phrazzld/posting-api/internal/store"
	"github.com/stretchr/testify/assert"
)

// Mock PgError creation helper
func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		Detail:         "error details",
		SchemaName:     "public",
		TableName:      "payroll_policies",
		ColumnName:     "document",
		ConstraintName: "test_constraint",
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) {
	return 0, m.err
}

func (m MockResult) RowsAffected() (int64, error) {
	return m.rowsAffected, m.err
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		check   func(error) bool
		matches bool
	}{
		{"serialization failure is retryable", newPgError("40001"), postgres.IsRetryable, true},
		{"deadlock is retryable", newPgError("40P01"), postgres.IsRetryable, true},
		{"lock timeout is retryable", fmt.Errorf("wrapped: %w", newPgError("55P03")), postgres.IsRetryable, true},
		{"unique violation is not retryable", newPgError("23505"), postgres.IsRetryable, false},
		{"nil is not retryable", nil, postgres.IsRetryable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.matches, tt.check(tt.err))
		})
	}
}

// TestCheckRowsAffected tests the CheckRowsAffected function
func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   sql.Result
		notFound error
		wantErr  bool
		errIs    error
	}{
		{name: "nil result", result: nil, wantErr: true},
		{name: "zero rows affected", result: MockResult{rowsAffected: 0}, wantErr: true, errIs: store.ErrNotFound},
		{
			name:     "zero rows affected with specific error",
			result:   MockResult{rowsAffected: 0},
			notFound: store.ErrRecordNotFound,
			wantErr:  true,
			errIs:    store.ErrRecordNotFound,
		},
		{name: "one row affected", result: MockResult{rowsAffected: 1}},
		{name: "error getting rows affected", result: MockResult{err: errors.New("rows affected error")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := postgres.CheckRowsAffected(tt.result, tt.notFound)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

// TestMapError tests the MapError function
func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		errIs  error
		errMsg string
	}{
		{name: "sql.ErrNoRows", err: sql.ErrNoRows, errIs: store.ErrNotFound, errMsg: "entity not found"},
		{name: "unique violation", err: newPgError("23505"), errIs: store.ErrDuplicate, errMsg: "entity already exists"},
		{name: "check constraint violation", err: newPgError("23514"), errIs: store.ErrInvalidEntity, errMsg: "check constraint violation"},
		{name: "not null violation", err: newPgError("23502"), errIs: store.ErrInvalidEntity, errMsg: "not null violation (document)"},
		{name: "invalid json", err: newPgError("22P02"), errIs: store.ErrInvalidEntity, errMsg: "invalid document"},
		{name: "deadlock", err: newPgError("40P01"), errIs: store.ErrTransactionFailed, errMsg: "transaction failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := postgres.MapError(tt.err)
			assert.ErrorIs(t, result, tt.errIs)
			assert.Contains(t, result.Error(), tt.errMsg)
		})
	}

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, postgres.MapError(nil))
	})

	t.Run("retryable errors keep the driver error", func(t *testing.T) {
		t.Parallel()
		result := postgres.MapError(newPgError("55P03"))
		assert.ErrorIs(t, result, store.ErrTransactionFailed)
		assert.True(t, postgres.IsRetryable(result))
	})

	t.Run("unmapped errors pass through", func(t *testing.T) {
		t.Parallel()
		undefinedTable := newPgError("42P01")
		assert.Same(t, undefinedTable, postgres.MapError(undefinedTable))

		generic := errors.New("generic error")
		assert.Equal(t, generic, postgres.MapError(generic))
	})
}
