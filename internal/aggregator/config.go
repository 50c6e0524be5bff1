package aggregator

import (
	"fmt"

	"github.com/crowdecho/crowdecho/internal/deduplication"
	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/fetcher"
	"github.com/crowdecho/crowdecho/internal/storage"
)

// Config holds multi-query aggregation configuration
type Config struct {
	// Fetch is the per-query orchestration template. Sources must be
	// set; MaxRetries, SubTarget, Sink and RunID are overridden per run
	// from the aggregation parameters below.
	Fetch fetcher.Config

	// PerQueryRetries is the retry budget each query run gets inside an
	// aggregation. This is deliberately smaller than the standalone
	// orchestrator default: with many queries in flight, breadth beats
	// per-query persistence.
	// Default: 1
	PerQueryRetries int

	// SubTargetFloor is the minimum per-query sub-target. Each query
	// gets max(SubTargetFloor, target/len(queries)).
	// Default: 1000
	SubTargetFloor int

	// MaxConcurrency caps the worker pool; the effective pool size is
	// min(MaxConcurrency, len(queries)).
	// Default: 8
	MaxConcurrency int

	// Dedup configures key normalization thresholds for both the
	// per-query extraction and the global unique set.
	Dedup deduplication.Config

	// Sink receives progress events. Nil disables emission.
	Sink events.Sink

	// Store persists the final snapshot and, via an EventSink, the run's
	// events. Nil disables persistence. Save failures never fail the run.
	Store storage.Storage

	// Backup writes JSON file backups of the snapshot and of each
	// query's raw items. Nil disables backups.
	Backup *storage.FileBackup
}

// DefaultConfig returns the default aggregation configuration
func DefaultConfig() Config {
	return Config{
		Fetch:           fetcher.DefaultConfig(),
		PerQueryRetries: 1,
		SubTargetFloor:  1000,
		MaxConcurrency:  8,
		Dedup:           deduplication.DefaultConfig(),
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if len(c.Fetch.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	if c.PerQueryRetries <= 0 {
		return fmt.Errorf("per_query_retries must be positive (got %d)", c.PerQueryRetries)
	}
	if c.SubTargetFloor <= 0 {
		return fmt.Errorf("sub_target_floor must be positive (got %d)", c.SubTargetFloor)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive (got %d)", c.MaxConcurrency)
	}
	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("invalid dedup config: %w", err)
	}
	return nil
}

// subTargetFor computes the per-query share of the global target.
func (c Config) subTargetFor(target, queryCount int) int {
	sub := c.SubTargetFloor
	if queryCount > 0 {
		if per := target / queryCount; per > sub {
			sub = per
		}
	}
	return sub
}
