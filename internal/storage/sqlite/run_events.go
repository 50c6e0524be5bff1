package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crowdecho/crowdecho/internal/events"
)

// StoreEvent persists one run event. The event's ID is set to the
// assigned row ID on success.
func (s *SQLiteStorage) StoreEvent(ctx context.Context, event *events.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.RunID == "" {
		return fmt.Errorf("event run_id is required")
	}

	data := "{}"
	if len(event.Data) > 0 {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		data = string(encoded)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (type, timestamp, run_id, query, severity, message, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(event.Type), event.Timestamp, event.RunID, event.Query,
		string(event.Severity), event.Message, data)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id
	return nil
}

// GetEvents retrieves stored events matching the filter, oldest first.
func (s *SQLiteStorage) GetEvents(ctx context.Context, filter events.EventFilter) ([]*events.Event, error) {
	var conditions []string
	var args []interface{}

	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	query := "SELECT id, type, timestamp, run_id, query, severity, message, data FROM run_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []*events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return result, nil
}

func scanEvent(rows *sql.Rows) (*events.Event, error) {
	var e events.Event
	var eventType, severity, data string

	if err := rows.Scan(&e.ID, &eventType, &e.Timestamp, &e.RunID,
		&e.Query, &severity, &e.Message, &data); err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	e.Type = events.EventType(eventType)
	e.Severity = events.EventSeverity(severity)
	if data != "" && data != "{}" {
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
	}
	return &e, nil
}
