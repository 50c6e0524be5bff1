package events

import (
	"context"
	"time"
)

// EventType represents the type of event emitted during an aggregation run.
type EventType string

const (
	// EventTypeRunStarted indicates a multi-query aggregation run began
	EventTypeRunStarted EventType = "run_started"
	// EventTypeRunCompleted indicates a multi-query aggregation run finished
	EventTypeRunCompleted EventType = "run_completed"

	// Per-query lifecycle events
	// EventTypeQueryStarted indicates a query was dispatched to the orchestrator
	EventTypeQueryStarted EventType = "query_started"
	// EventTypeQueryCompleted indicates a query finished and was merged
	EventTypeQueryCompleted EventType = "query_completed"
	// EventTypeQueryFailed indicates a query produced no items or crashed
	EventTypeQueryFailed EventType = "query_failed"

	// Orchestrator events
	// EventTypeAttemptCompleted indicates one fetch attempt finished across all sources
	EventTypeAttemptCompleted EventType = "attempt_completed"
	// EventTypeSourceSucceeded indicates one source returned items within an attempt
	EventTypeSourceSucceeded EventType = "source_succeeded"
	// EventTypeSourceFailed indicates one source errored or timed out within an attempt
	EventTypeSourceFailed EventType = "source_failed"

	// Aggregation milestones
	// EventTypeTargetReached indicates the global unique target was crossed mid-run
	EventTypeTargetReached EventType = "target_reached"
	// EventTypeEscalationChanged indicates the analyzer raised or lowered the escalation level
	EventTypeEscalationChanged EventType = "escalation_changed"

	// Persistence events
	// EventTypeSnapshotSaved indicates a run snapshot was persisted
	EventTypeSnapshotSaved EventType = "snapshot_saved"
	// EventTypeSnapshotSaveFailed indicates persistence failed (non-fatal)
	EventTypeSnapshotSaveFailed EventType = "snapshot_save_failed"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error events
	SeverityError EventSeverity = "error"
)

// Event is one structured progress record from the aggregation engine.
// The core emits events instead of printing; whatever sink is plugged
// in decides what to do with them.
type Event struct {
	// ID is assigned by the sink that stores the event (zero until stored)
	ID int64 `json:"id,omitempty"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// RunID identifies the aggregation run this event belongs to
	RunID string `json:"run_id"`
	// Query is the query being processed, when the event is query-scoped
	Query string `json:"query,omitempty"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventFilter selects stored events for retrieval.
type EventFilter struct {
	RunID string
	Type  EventType
	Since time.Time
	Limit int
}

// Matches reports whether an event passes the filter (Limit excluded).
func (f EventFilter) Matches(e *Event) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Sink receives events from the aggregation engine. Implementations
// must be safe for concurrent use; emit failures are the sink's problem
// and never fail the run.
type Sink interface {
	Emit(ctx context.Context, event *Event) error
}

// Emit sends an event to a sink, tolerating a nil sink and swallowing
// sink errors. This is the call sites' one-liner: progress reporting
// must never change the outcome of the work being reported.
func Emit(ctx context.Context, sink Sink, event *Event) {
	if sink == nil || event == nil {
		return
	}
	_ = sink.Emit(ctx, event)
}
