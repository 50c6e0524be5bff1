// Package source defines the adapter contract between the aggregation
// core and the external comment providers, plus the concrete YouTube
// and Reddit adapters and a deterministic mock for tests.
//
// The core never learns how a source authenticates, paginates, or
// rate-limits; all of that lives behind the Source interface. An
// adapter must honor the context deadline it is given and must never
// leave shared state inconsistent on error. Partial results on error
// are not required: an adapter may return all-or-nothing.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/crowdecho/crowdecho/internal/types"
)

// FetchLimits bounds a single fetch call. The orchestrator widens these
// per retry attempt; the adapter treats them as hard caps.
type FetchLimits struct {
	// MaxItems caps the number of containers (videos, threads) visited.
	MaxItems int
	// PerItemLimit caps comments collected per container.
	PerItemLimit int
}

// Validate checks if the limits have usable values
func (l FetchLimits) Validate() error {
	if l.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive (got %d)", l.MaxItems)
	}
	if l.PerItemLimit <= 0 {
		return fmt.Errorf("per_item_limit must be positive (got %d)", l.PerItemLimit)
	}
	return nil
}

// Source is one external comment provider.
type Source interface {
	// Name returns the stable source identifier ("youtube", "reddit").
	Name() string

	// Fetch searches the provider for the query and returns the
	// comments found, with replies attached one level deep. Fetch must
	// return promptly once ctx is done; the caller treats a deadline
	// overrun as a source timeout.
	Fetch(ctx context.Context, query string, limits FetchLimits) ([]types.Comment, error)
}

// ErrQuotaExhausted is returned by an adapter when every configured API
// key is rate limited or out of quota.
var ErrQuotaExhausted = errors.New("all api keys exhausted")

// ErrNoResults is returned when the provider answered but had nothing
// for the query. The orchestrator records it like any other source
// error; retry widening may still find results on a later attempt.
var ErrNoResults = errors.New("no results for query")
