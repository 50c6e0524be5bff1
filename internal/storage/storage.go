// Package storage persists aggregation run snapshots and their event
// streams. The aggregator treats persistence as best-effort: a failed
// save is reported through the event stream and the snapshot is still
// returned to the caller.
package storage

import (
	"context"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/storage/sqlite"
	"github.com/crowdecho/crowdecho/internal/types"
)

// Storage defines the interface for run persistence backends
type Storage interface {
	// Snapshots
	SaveSnapshot(ctx context.Context, snapshot *types.RunSnapshot) (int64, error)
	GetSnapshot(ctx context.Context, runID string) (*types.RunSnapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]*types.RunSnapshot, error)

	// Events - structured progress records emitted during a run
	StoreEvent(ctx context.Context, event *events.Event) error
	GetEvents(ctx context.Context, filter events.EventFilter) ([]*events.Event, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".crowdecho/runs.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".crowdecho/runs.db",
	}
}

// NewStorage creates a new SQLite storage backend.
// The ctx parameter is currently unused but kept for API consistency.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".crowdecho/runs.db"
	}
	return sqlite.New(cfg.Path)
}
