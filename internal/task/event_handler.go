package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/events"
)

// Submitter enqueues posting jobs. It is implemented by *Runner.
type Submitter interface {
	Submit(ctx context.Context, tenantID, requestedBy string, batchSize int) error
}

// PostingEventHandler implements the events.EventHandler interface.
// It turns posting requests, and new active versions of trigger classes,
// into posting jobs.
type PostingEventHandler struct {
	submitter      Submitter
	triggerClasses []string
	logger         *slog.Logger
}

// NewPostingEventHandler creates a handler that submits jobs to submitter.
// A new active record of any class in triggerClasses requests a posting run
// for its tenant as SystemIdentity.
func NewPostingEventHandler(submitter Submitter, triggerClasses []string, logger *slog.Logger) *PostingEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostingEventHandler{
		submitter:      submitter,
		triggerClasses: slices.Clone(triggerClasses),
		logger:         logger.With("component", "posting_event_handler"),
	}
}

// EventTypes returns the event types HandleEvent acts on.
func (h *PostingEventHandler) EventTypes() []string {
	return []string{events.TypePostingRequested, events.TypeRecordVersionCreated}
}

// HandleEvent processes events by submitting posting jobs.
// Events of other types are ignored.
func (h *PostingEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypePostingRequested:
		var payload events.PostingRequest
		if err := event.UnmarshalPayload(&payload); err != nil {
			h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return h.submit(ctx, event, payload.RequestedBy, payload.BatchSize)

	case events.TypeRecordVersionCreated:
		var payload events.RecordVersionCreated
		if err := event.UnmarshalPayload(&payload); err != nil {
			h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if !payload.IsActive || !slices.Contains(h.triggerClasses, payload.Class) {
			return nil
		}
		h.logger.Debug("new active record triggers posting",
			"event_id", event.ID,
			"record_class", payload.Class,
			"record_id", payload.RecordID)
		return h.submit(ctx, event, domain.SystemIdentity, 0)

	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}
}

func (h *PostingEventHandler) submit(ctx context.Context, event *events.Event, requestedBy string, batchSize int) error {
	if err := h.submitter.Submit(ctx, event.TenantID, requestedBy, batchSize); err != nil {
		h.logger.Error("failed to submit posting job",
			"error", err,
			"tenant_id", event.TenantID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit posting job: %w", err)
	}
	return nil
}

// Ensure PostingEventHandler implements events.EventHandler
var _ events.EventHandler = (*PostingEventHandler)(nil)

// Ensure Runner implements Submitter
var _ Submitter = (*Runner)(nil)
