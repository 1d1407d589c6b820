// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrNotObject is returned when a document root is not a JSON object.
	ErrNotObject = errors.New("document must be a JSON object")

	// ErrPathConflict is returned when a path cannot be set because an
	// intermediate node exists and is not an object.
	ErrPathConflict = errors.New("path conflicts with a non-object value")

	// ErrEmptyPath is returned when Set is called without a path.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyTenant is returned when a tenant scope identifier is missing.
	ErrEmptyTenant = errors.New("tenant scope cannot be empty")
)
