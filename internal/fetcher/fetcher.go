// Package fetcher drives one query through fan-out-to-sources,
// accumulation, and bounded retry until a sub-target is met or retries
// are exhausted.
//
// Each attempt launches one goroutine per configured source with a
// bounded time budget, joins them all, then evaluates the continue/stop
// decision. A failure on one source never aborts its siblings; errors
// and timeouts are recorded per source in the final QueryOutcome.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/source"
	"github.com/crowdecho/crowdecho/internal/types"
)

// Fetcher is the per-query orchestrator.
type Fetcher struct {
	cfg Config
}

// New creates a Fetcher with the given configuration.
func New(cfg Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetcher config: %w", err)
	}
	return &Fetcher{cfg: cfg}, nil
}

// Run executes the attempt loop for one query and returns its outcome.
// Run never returns an error: every failure mode is folded into the
// QueryOutcome (per-source errors, targetAchieved=false). The context
// bounds the whole query run; when it is canceled the loop stops after
// the in-flight attempt joins.
func (f *Fetcher) Run(ctx context.Context, query string) *types.QueryOutcome {
	outcome := &types.QueryOutcome{
		Query:  query,
		Errors: make(map[string]string),
	}
	sourcesUsed := make(map[string]bool)

	totalComments := 0
	totalReplies := 0

	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		outcome.AttemptsMade = attempt

		limits := f.cfg.limitsForAttempt(attempt)
		result := f.runAttempt(ctx, query, limits)

		itemsThisAttempt := 0
		for _, res := range orderedResults(result.PerSource) {
			if res.Failed() {
				outcome.Errors[res.SourceID] = res.Err
				events.Emit(ctx, f.cfg.Sink, events.NewSourceFailedEvent(
					f.cfg.RunID, query, res.SourceID, res.Err, isTimeoutMessage(res.Err)))
				continue
			}
			sourcesUsed[res.SourceID] = true
			itemsThisAttempt += len(res.Items)
			outcome.Items = append(outcome.Items, res.Items...)
			events.Emit(ctx, f.cfg.Sink, events.NewSourceSucceededEvent(
				f.cfg.RunID, query, res.SourceID, len(res.Items)))
		}

		totalComments += result.CommentsThisAttempt
		totalReplies += result.RepliesThisAttempt
		runningTotal := totalComments + totalReplies

		events.Emit(ctx, f.cfg.Sink, events.NewAttemptCompletedEvent(
			f.cfg.RunID, query, attempt, f.cfg.MaxRetries,
			result.CommentsThisAttempt, result.RepliesThisAttempt, runningTotal))

		// Continue/stop decision: target met, no data but retries
		// left, data but retries left, exhausted.
		switch {
		case runningTotal >= f.cfg.SubTarget:
			outcome.TargetAchieved = true
		case itemsThisAttempt == 0 && attempt < f.cfg.MaxRetries:
			f.pause(ctx)
		case attempt < f.cfg.MaxRetries:
			f.pause(ctx)
		}
		if outcome.TargetAchieved || ctx.Err() != nil {
			break
		}
	}

	outcome.TotalComments = totalComments
	outcome.TotalReplies = totalReplies
	outcome.SourcesUsed = sortedKeys(sourcesUsed)
	return outcome
}

// runAttempt fans out one fetch per source and joins them all before
// returning. This join is the only suspension point within an attempt.
func (f *Fetcher) runAttempt(ctx context.Context, query string, limits AttemptLimits) *types.AttemptOutcome {
	outcome := &types.AttemptOutcome{
		AttemptNumber: limits.Attempt,
		PerSource:     make(map[string]*types.SourceResult, len(f.cfg.Sources)),
	}

	results := make(chan *types.SourceResult, len(f.cfg.Sources))
	for _, src := range f.cfg.Sources {
		go func(src source.Source) {
			results <- f.fetchOne(ctx, src, query, limits)
		}(src)
	}

	for range f.cfg.Sources {
		res := <-results
		outcome.PerSource[res.SourceID] = res
		if !res.Failed() {
			outcome.CommentsThisAttempt += len(res.Items)
			outcome.RepliesThisAttempt += types.CountReplies(res.Items)
		}
	}
	return outcome
}

// fetchOne calls a single source under its time budget, converting
// panics, timeouts, and adapter errors into a failed SourceResult. The
// returned items are stamped with the source ID for downstream
// attribution.
func (f *Fetcher) fetchOne(ctx context.Context, src source.Source, query string, limits AttemptLimits) (result *types.SourceResult) {
	name := src.Name()
	result = &types.SourceResult{SourceID: name}

	defer func() {
		if r := recover(); r != nil {
			result.Items = nil
			result.TotalComments = 0
			result.Err = fmt.Sprintf("panic in source %s: %v", name, r)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	items, err := src.Fetch(fetchCtx, query, limits.Limits)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Err = fmt.Sprintf("timeout after %v", limits.Timeout)
		} else {
			result.Err = err.Error()
		}
		return result
	}

	for i := range items {
		items[i].SourceID = name
	}
	result.Items = items
	result.TotalComments = len(items)
	return result
}

// pause sleeps between attempts, waking early on cancellation. The
// pause is local to this query's task and never blocks sibling queries.
func (f *Fetcher) pause(ctx context.Context) {
	if f.cfg.PauseBetweenAttempts <= 0 {
		return
	}
	t := time.NewTimer(f.cfg.PauseBetweenAttempts)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// orderedResults returns per-source results in source-ID order so event
// emission and error recording are deterministic.
func orderedResults(perSource map[string]*types.SourceResult) []*types.SourceResult {
	ids := make([]string, 0, len(perSource))
	for id := range perSource {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*types.SourceResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, perSource[id])
	}
	return out
}

func isTimeoutMessage(msg string) bool {
	return len(msg) >= 7 && msg[:7] == "timeout"
}
