package fetcher

import (
	"fmt"
	"time"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/source"
)

// Config holds per-query orchestration configuration
type Config struct {
	// Sources are the adapters to fan out to on every attempt.
	// The fan-out is one goroutine per source, so this list is expected
	// to stay small (two in the standard youtube+reddit setup).
	Sources []source.Source

	// MaxRetries is the maximum number of fetch attempts per query.
	// Default: 3
	MaxRetries int

	// SubTarget is the comments+replies count that ends the attempt
	// loop early with targetAchieved=true.
	// Default: 1000
	SubTarget int

	// AttemptTimeout bounds each source call within one attempt.
	// Default: 120s, scaled by TimeoutMultiplier.
	AttemptTimeout time.Duration

	// TimeoutMultiplier scales AttemptTimeout; set from the analyzer's
	// adaptive strategy on escalated runs.
	// Default: 1.0
	TimeoutMultiplier float64

	// PauseBetweenAttempts is the delay before a retry.
	// Default: 2s
	PauseBetweenAttempts time.Duration

	// BaseMaxItems is the per-source container cap on attempt 1;
	// each retry widens it by MaxItemsIncrement.
	// Defaults: 15 + 5 per attempt.
	BaseMaxItems      int
	MaxItemsIncrement int

	// BasePerItemLimit is the comments-per-container cap on attempt 1;
	// each retry widens it by PerItemIncrement.
	// Defaults: 100 + 20 per attempt.
	BasePerItemLimit int
	PerItemIncrement int

	// Sink receives progress events. Nil disables emission.
	Sink events.Sink

	// RunID tags emitted events with the owning aggregation run.
	RunID string
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:           3,
		SubTarget:            1000,
		AttemptTimeout:       120 * time.Second,
		TimeoutMultiplier:    1.0,
		PauseBetweenAttempts: 2 * time.Second,
		BaseMaxItems:         15,
		MaxItemsIncrement:    5,
		BasePerItemLimit:     100,
		PerItemIncrement:     20,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive (got %d)", c.MaxRetries)
	}
	if c.SubTarget <= 0 {
		return fmt.Errorf("sub_target must be positive (got %d)", c.SubTarget)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be positive (got %v)", c.AttemptTimeout)
	}
	if c.TimeoutMultiplier <= 0 {
		return fmt.Errorf("timeout_multiplier must be positive (got %v)", c.TimeoutMultiplier)
	}
	if c.PauseBetweenAttempts < 0 {
		return fmt.Errorf("pause_between_attempts cannot be negative (got %v)", c.PauseBetweenAttempts)
	}
	if c.BaseMaxItems <= 0 || c.BasePerItemLimit <= 0 {
		return fmt.Errorf("base limits must be positive (got %d items, %d per item)",
			c.BaseMaxItems, c.BasePerItemLimit)
	}
	if c.MaxItemsIncrement < 0 || c.PerItemIncrement < 0 {
		return fmt.Errorf("limit increments cannot be negative")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name()] {
			return fmt.Errorf("duplicate source %q", s.Name())
		}
		seen[s.Name()] = true
	}
	return nil
}

// AttemptLimits is the parameter bundle for one attempt, computed once
// per loop iteration and passed down explicitly rather than captured in
// closures.
type AttemptLimits struct {
	Attempt int
	Limits  source.FetchLimits
	Timeout time.Duration
}

// limitsForAttempt widens the search window as attempts accumulate.
func (c Config) limitsForAttempt(attempt int) AttemptLimits {
	return AttemptLimits{
		Attempt: attempt,
		Limits: source.FetchLimits{
			MaxItems:     c.BaseMaxItems + (attempt-1)*c.MaxItemsIncrement,
			PerItemLimit: c.BasePerItemLimit + (attempt-1)*c.PerItemIncrement,
		},
		Timeout: time.Duration(float64(c.AttemptTimeout) * c.TimeoutMultiplier),
	}
}
