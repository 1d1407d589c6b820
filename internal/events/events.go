package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypePostingRequested asks for a posting run for one tenant.
	// Payload: PostingRequest.
	TypePostingRequested = "posting.requested"

	// TypeRecordVersionCreated reports a new versioned record.
	// Payload: RecordVersionCreated.
	TypeRecordVersionCreated = "record.version_created"
)

// Event is a message published by one component and handled by others
// without either knowing the other.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies the payload kind
	Type string `json:"type"`

	// TenantID is the tenant the event concerns
	TenantID string `json:"tenant_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// PostingRequest is the payload of TypePostingRequested.
type PostingRequest struct {
	RequestedBy string `json:"requested_by,omitempty"`
	// BatchSize is zero when the runner's configured default applies.
	BatchSize   int    `json:"batch_size,omitempty"`
}

// RecordVersionCreated is the payload of TypeRecordVersionCreated.
type RecordVersionCreated struct {
	Class    string    `json:"class"`
	RecordID uuid.UUID `json:"record_id"`
	Version  string    `json:"version"`
	Code     string    `json:"code"`
	IsActive bool      `json:"is_active"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type, tenant and payload.
func NewEvent(eventType, tenantID string, payload interface{}) (*Event, error) {
	// Serialize the payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		TenantID:  tenantID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
