package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/service"
	"github.com/phrazzld/posting-api/internal/store"
	"github.com/phrazzld/posting-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
		{
			name:           "unknown class",
			err:            fmt.Errorf("%w: %q", service.ErrUnknownClass, "tax_policy"),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Unknown record class",
		},
		{
			name:           "wrapped store not found",
			err:            fmt.Errorf("lookup: %w", store.ErrRecordNotFound),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Record not found",
		},
		{
			name:           "duplicate",
			err:            store.ErrDuplicate,
			expectedStatus: http.StatusConflict,
			expectedMsg:    "Record already exists",
		},
		{
			name:           "empty tenant",
			err:            fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTenant),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Tenant is required",
		},
		{
			name:           "invalid job",
			err:            fmt.Errorf("%w: BatchSize failed on gt", domain.ErrInvalidJob),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid posting job",
		},
		{
			name:           "queue closed",
			err:            fmt.Errorf("failed to enqueue posting job: %w", task.ErrQueueClosed),
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "Posting is unavailable, try again later",
		},
		{
			name:           "transaction failure",
			err:            fmt.Errorf("%w: insert: connection reset", store.ErrTransactionFailed),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Failed to save record",
		},
		{
			name:           "unknown error",
			err:            errors.New("pq: password authentication failed for user posting"),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expectedStatus, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.expectedMsg, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := validator.New().Struct(PostingJobRequest{BatchSize: 20000})
	require.Error(t, err)
	assert.Equal(t, "Invalid batch_size: too large", SanitizeValidationError(err))

	assert.Equal(t, "Invalid request format", SanitizeValidationError(errors.New("invalid character '}'")))
	assert.Equal(t, "Document must be a JSON object", SanitizeValidationError(domain.ErrNotObject))
}

func TestToSnakeCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "batch_size", toSnakeCase("BatchSize"))
	assert.Equal(t, "requested_by", toSnakeCase("RequestedBy"))
	assert.Equal(t, "code", toSnakeCase("Code"))
}
