package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/posting-api/internal/platform/logger"
)

// ErrNilEvent is returned by EmitEvent when called without an event.
var ErrNilEvent = errors.New("event cannot be nil")

type subscription struct {
	handler EventHandler
	types   []string
}

func (s subscription) accepts(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventEmitter is a simple implementation of the EventEmitter interface
// that stores registered handlers in memory and dispatches events to them
// synchronously, in registration order.
type InMemoryEventEmitter struct {
	subscriptions []subscription
	mu            sync.RWMutex
	logger        *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		subscriptions: make([]subscription, 0),
		logger:        logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a new event handler. The handler receives only
// events of the given types, or every event when no type is given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, eventTypes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions = append(e.subscriptions, subscription{
		handler: handler,
		types:   slices.Clone(eventTypes),
	})
	e.logger.Debug("registered new event handler",
		"handler_count", len(e.subscriptions),
		"event_types", eventTypes)
}

// EmitEvent publishes the given event to every handler subscribed to its type.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return ErrNilEvent
	}
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		"event_id", event.ID,
		"event_type", event.Type,
		"tenant_id", event.TenantID)

	e.mu.RLock()
	handlers := make([]EventHandler, 0, len(e.subscriptions))
	for _, sub := range e.subscriptions {
		if sub.accepts(event.Type) {
			handlers = append(handlers, sub.handler)
		}
	}
	e.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug("no handlers subscribed to event type")
		return nil
	}

	log.Debug("emitting event",
		"handler_count", len(handlers),
		"payload_bytes", len(event.Payload))

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event",
				"error", err,
				"handler_index", i)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
