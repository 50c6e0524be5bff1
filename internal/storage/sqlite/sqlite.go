// Package sqlite implements the storage interface on a single SQLite
// database file opened in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crowdecho/crowdecho/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveSnapshot persists a run snapshot and returns its row ID. Saving
// the same run_id twice replaces the earlier row; a re-run of a
// persisted run supersedes it.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snapshot *types.RunSnapshot) (int64, error) {
	if snapshot == nil {
		return 0, fmt.Errorf("snapshot is nil")
	}
	if err := snapshot.Validate(); err != nil {
		return 0, fmt.Errorf("invalid snapshot: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			run_id, target, unique_count, total_comments, total_replies,
			grand_total, successful_queries, failed_queries, target_achieved,
			processing_seconds, started_at, completed_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			target = excluded.target,
			unique_count = excluded.unique_count,
			total_comments = excluded.total_comments,
			total_replies = excluded.total_replies,
			grand_total = excluded.grand_total,
			successful_queries = excluded.successful_queries,
			failed_queries = excluded.failed_queries,
			target_achieved = excluded.target_achieved,
			processing_seconds = excluded.processing_seconds,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			payload = excluded.payload
	`,
		snapshot.RunID, snapshot.Target, snapshot.UniqueCount,
		snapshot.TotalProcessedComments, snapshot.TotalProcessedReplies,
		snapshot.GrandTotal, snapshot.SuccessfulQueries, snapshot.FailedQueries,
		snapshot.TargetAchieved, snapshot.ProcessingTimeSeconds,
		snapshot.StartedAt, snapshot.CompletedAt, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}
	return id, nil
}

// GetSnapshot loads one snapshot by its run ID.
func (s *SQLiteStorage) GetSnapshot(ctx context.Context, runID string) (*types.RunSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snapshot types.RunSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", runID, err)
	}
	return &snapshot, nil
}

// ListRecentSnapshots returns up to limit snapshots, most recently
// completed first. A non-positive limit defaults to 10.
func (s *SQLiteStorage) ListRecentSnapshots(ctx context.Context, limit int) ([]*types.RunSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM snapshots
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*types.RunSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		var snapshot types.RunSnapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
