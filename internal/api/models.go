package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
)

// Common request/response structures

// PostingJobRequest defines the payload for requesting a posting run.
type PostingJobRequest struct {
	// RequestedBy is the identity on whose behalf posting runs. Empty means
	// the system identity.
	RequestedBy string `json:"requested_by,omitempty" validate:"max=255"`

	// BatchSize caps the items posted in one run. Zero selects the
	// configured default.
	BatchSize int `json:"batch_size,omitempty" validate:"gte=0,lte=10000"`
}

// PostingJobResponse acknowledges an accepted posting request.
type PostingJobResponse struct {
	TenantID  string `json:"tenant_id"`
	Status    string `json:"status"`
	// BatchSize is omitted when the configured default applies.
	BatchSize int    `json:"batch_size,omitempty"`
}

// UpsertRecordRequest defines the payload for creating or patching a
// versioned record. An absent or nil ID creates a new version.
type UpsertRecordRequest struct {
	ID       *uuid.UUID      `json:"id,omitempty"`
	Document domain.Document `json:"document"`
	Version  *string         `json:"version,omitempty" validate:"omitempty,max=64"`
	Code     *string         `json:"code,omitempty" validate:"omitempty,max=64"`
}

// toInput converts the request to the service input.
func (req UpsertRecordRequest) toInput() domain.UpsertInput {
	return domain.UpsertInput{
		ID:       req.ID,
		Document: req.Document,
		Version:  req.Version,
		Code:     req.Code,
	}
}

// RecordResponse is the JSON representation of a versioned record.
type RecordResponse struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Class     string          `json:"class"`
	Version   string          `json:"version"`
	Code      string          `json:"code"`
	IsActive  bool            `json:"is_active"`
	Document  domain.Document `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RecordListResponse wraps a list of records.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
}

func recordToResponse(r *domain.VersionedRecord) RecordResponse {
	return RecordResponse{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Class:     r.Class,
		Version:   r.Version(),
		Code:      r.Code(),
		IsActive:  r.IsActive(),
		Document:  r.Document,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func recordsToResponse(records []*domain.VersionedRecord) RecordListResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, recordToResponse(r))
	}
	return RecordListResponse{Records: out}
}
