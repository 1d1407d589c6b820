package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/posting-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// invalidJSONCode is raised when a jsonb value can not be parsed
	invalidJSONCode = "22P02"

	// serializationFailureCode is raised when a concurrent transaction
	// invalidated the current one. The transaction must be retried.
	serializationFailureCode = "40001"

	// deadlockDetectedCode is raised when PostgreSQL aborts one party of a deadlock
	deadlockDetectedCode = "40P01"

	// lockNotAvailableCode is raised when a lock wait exceeds lock_timeout
	lockNotAvailableCode = "55P03"
)

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
// This function should be used in all database operations to ensure consistent error handling.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	// Handle common SQL errors
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	// Handle PostgreSQL-specific errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case checkViolationCode:
			return fmt.Errorf(
				"%w: check constraint violation (%s): %v",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				err,
			)
		case notNullViolationCode:
			return fmt.Errorf(
				"%w: not null violation (%s): %v",
				store.ErrInvalidEntity,
				pgErr.ColumnName,
				err,
			)
		case invalidJSONCode:
			return fmt.Errorf("%w: invalid document: %v", store.ErrInvalidEntity, err)
		}
		if IsRetryable(err) {
			return fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
		}
	}

	// Return the original error for errors that don't have specific mappings
	return err
}

// IsRetryable reports whether the error aborted a transaction that could
// succeed if run again (serialization failure, deadlock or lock timeout).
func IsRetryable(err error) bool {
	return hasCode(err, serializationFailureCode) ||
		hasCode(err, deadlockDetectedCode) ||
		hasCode(err, lockNotAvailableCode)
}

// CheckRowsAffected examines the number of rows affected by a database operation.
// If no rows were affected, it returns notFound (store.ErrNotFound when nil).
// This is useful for UPDATE and DELETE operations where the absence of affected rows
// typically indicates that the target record doesn't exist.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
