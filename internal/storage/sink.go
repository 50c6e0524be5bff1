package storage

import (
	"context"

	"github.com/crowdecho/crowdecho/internal/events"
)

// EventSink adapts a Storage into an events.Sink so run events are
// persisted as the engine emits them.
type EventSink struct {
	store Storage
}

// NewEventSink creates a sink that writes every event to the given store.
func NewEventSink(store Storage) *EventSink {
	return &EventSink{store: store}
}

// Emit stores the event. Errors are returned for sinks that care
// (MultiSink aggregation); the engine's Emit helper discards them.
func (s *EventSink) Emit(ctx context.Context, event *events.Event) error {
	return s.store.StoreEvent(ctx, event)
}
