package events

import (
	"fmt"
	"time"
)

// NewRunStartedEvent creates an event marking the start of an aggregation run.
func NewRunStartedEvent(runID string, queries int, target int) *Event {
	return &Event{
		Type:      EventTypeRunStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityInfo,
		Message:   fmt.Sprintf("aggregation started: %d queries, target %d", queries, target),
		Data: map[string]interface{}{
			"queries": queries,
			"target":  target,
		},
	}
}

// NewRunCompletedEvent creates an event marking the end of an aggregation run.
func NewRunCompletedEvent(runID string, uniqueCount, successful, failed int, achieved bool, elapsed time.Duration) *Event {
	return &Event{
		Type:      EventTypeRunCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityInfo,
		Message: fmt.Sprintf("aggregation completed: %d unique, %d/%d queries succeeded, target_achieved=%v",
			uniqueCount, successful, successful+failed, achieved),
		Data: map[string]interface{}{
			"unique_count":       uniqueCount,
			"successful_queries": successful,
			"failed_queries":     failed,
			"target_achieved":    achieved,
			"elapsed_seconds":    elapsed.Seconds(),
		},
	}
}

// NewQueryStartedEvent creates an event for a query dispatched to a worker.
func NewQueryStartedEvent(runID, query string, subTarget int) *Event {
	return &Event{
		Type:      EventTypeQueryStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityInfo,
		Message:   fmt.Sprintf("query started (sub-target %d)", subTarget),
		Data:      map[string]interface{}{"sub_target": subTarget},
	}
}

// NewQueryCompletedEvent creates an event for a successfully merged query.
func NewQueryCompletedEvent(runID, query string, comments, replies, newUnique, globalUnique int) *Event {
	return &Event{
		Type:      EventTypeQueryCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityInfo,
		Message: fmt.Sprintf("query completed: %d comments, %d replies, %d new unique (global %d)",
			comments, replies, newUnique, globalUnique),
		Data: map[string]interface{}{
			"comments":      comments,
			"replies":       replies,
			"new_unique":    newUnique,
			"global_unique": globalUnique,
		},
	}
}

// NewQueryFailedEvent creates an event for a query that produced nothing.
func NewQueryFailedEvent(runID, query, reason string) *Event {
	return &Event{
		Type:      EventTypeQueryFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf("query failed: %s", reason),
		Data:      map[string]interface{}{"reason": reason},
	}
}

// NewAttemptCompletedEvent creates an event for one finished fetch attempt.
func NewAttemptCompletedEvent(runID, query string, attempt, maxAttempts, comments, replies, runningTotal int) *Event {
	return &Event{
		Type:      EventTypeAttemptCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityInfo,
		Message: fmt.Sprintf("attempt %d/%d: %d comments, %d replies (running total %d)",
			attempt, maxAttempts, comments, replies, runningTotal),
		Data: map[string]interface{}{
			"attempt":       attempt,
			"max_attempts":  maxAttempts,
			"comments":      comments,
			"replies":       replies,
			"running_total": runningTotal,
		},
	}
}

// NewSourceSucceededEvent creates an event for one source's successful fetch.
func NewSourceSucceededEvent(runID, query, sourceID string, items int) *Event {
	return &Event{
		Type:      EventTypeSourceSucceeded,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityInfo,
		Message:   fmt.Sprintf("source %s returned %d items", sourceID, items),
		Data: map[string]interface{}{
			"source_id": sourceID,
			"items":     items,
		},
	}
}

// NewSourceFailedEvent creates an event for one source's failed fetch.
func NewSourceFailedEvent(runID, query, sourceID, reason string, timeout bool) *Event {
	return &Event{
		Type:      EventTypeSourceFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		Query:     query,
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf("source %s failed: %s", sourceID, reason),
		Data: map[string]interface{}{
			"source_id": sourceID,
			"reason":    reason,
			"timeout":   timeout,
		},
	}
}

// NewTargetReachedEvent creates an event for crossing the global unique
// target. In-flight queries keep running; this event is the cooperative
// stop signal for callers that submit queries incrementally.
func NewTargetReachedEvent(runID string, uniqueCount, target int) *Event {
	return &Event{
		Type:      EventTypeTargetReached,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityInfo,
		Message:   fmt.Sprintf("target reached: %d unique comments (target %d)", uniqueCount, target),
		Data: map[string]interface{}{
			"unique_count": uniqueCount,
			"target":       target,
		},
	}
}

// NewEscalationChangedEvent creates an event for an analyzer escalation change.
func NewEscalationChangedEvent(runID string, from, to int, status string) *Event {
	return &Event{
		Type:      EventTypeEscalationChanged,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf("escalation level %d -> %d (%s)", from, to, status),
		Data: map[string]interface{}{
			"from":   from,
			"to":     to,
			"status": status,
		},
	}
}

// NewSnapshotSavedEvent creates an event for a persisted run snapshot.
func NewSnapshotSavedEvent(runID, location string) *Event {
	return &Event{
		Type:      EventTypeSnapshotSaved,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityInfo,
		Message:   fmt.Sprintf("snapshot saved to %s", location),
		Data:      map[string]interface{}{"location": location},
	}
}

// NewSnapshotSaveFailedEvent creates an event for a failed (non-fatal) save.
func NewSnapshotSaveFailedEvent(runID, reason string) *Event {
	return &Event{
		Type:      EventTypeSnapshotSaveFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  SeverityError,
		Message:   fmt.Sprintf("snapshot save failed: %s", reason),
		Data:      map[string]interface{}{"reason": reason},
	}
}
