package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/posting-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrUnknownClass indicates that no record store serves the requested class.
	// API layer should map this to HTTP 404 Not Found.
	ErrUnknownClass = errors.New("unknown record class")

	// ErrRecordNotFound indicates that the requested record does not exist
	// within the tenant. API layer should map this to HTTP 404 Not Found.
	ErrRecordNotFound = errors.New("record not found")
)

// ServiceError wraps errors from a service with context.
type ServiceError struct {
	// Service is the service that failed (e.g., "policy", "posting")
	Service string
	// Operation is the operation that failed (e.g., "upsert", "process")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// It returns known sentinel errors directly without wrapping.
func NewServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Check for service-defined sentinel errors
	if errors.Is(err, ErrUnknownClass) {
		return ErrUnknownClass
	}
	if errors.Is(err, ErrRecordNotFound) {
		return ErrRecordNotFound
	}

	// Check for store-level sentinel errors that should be mapped to service-level ones
	if errors.Is(err, store.ErrNotFound) {
		return ErrRecordNotFound
	}

	// If not a sentinel to be returned directly, wrap it
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
