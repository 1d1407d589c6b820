package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/posting-api/internal/api/shared"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/service"
	"github.com/phrazzld/posting-api/internal/store"
	"github.com/phrazzld/posting-api/internal/task"
)

// retryAfterSeconds is advertised to clients when the posting queue is closed.
const retryAfterSeconds = 5

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrUnknownClass),
		errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidJob),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrEmptyTenant),
		errors.Is(err, domain.ErrNotObject),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// The pipeline is shutting down
	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error, including store.ErrTransactionFailed
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrUnknownClass):
		return "Unknown record class"

	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Record not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Record already exists"

	case errors.Is(err, domain.ErrEmptyTenant):
		return "Tenant is required"

	case errors.Is(err, domain.ErrNotObject):
		return "Document must be a JSON object"

	case errors.Is(err, domain.ErrInvalidJob):
		return "Invalid posting job"

	case errors.Is(err, domain.ErrInvalidFormat):
		return "Invalid identifier format"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, task.ErrQueueClosed):
		return "Posting is unavailable, try again later"

	case errors.Is(err, store.ErrTransactionFailed):
		return "Failed to save record"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// safe message for internal server errors when not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithRetryAfter(retryAfterSeconds))
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 response for a request decoding or
// validation failure.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", toSnakeCase(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	if errors.Is(err, shared.ErrEmptyBody) {
		return "Request body is required"
	}
	if errors.Is(err, domain.ErrInvalidJob) {
		return "Invalid posting job"
	}
	if errors.Is(err, domain.ErrNotObject) {
		return "Document must be a JSON object"
	}

	// Fall back to a generic validation error message
	return "Invalid request format"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt", "gte", "min":
		return "too small"
	case "lt", "lte", "max":
		return "too large"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}

// toSnakeCase converts a Go field name to the JSON name used by requests.
func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
