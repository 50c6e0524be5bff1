// Package aggregator runs many queries concurrently through the
// per-query orchestrator and merges their unique outputs into one
// global set.
//
// Workers are independent; the only shared-mutation point is the merge
// loop, a single consumer draining the results channel. Per completed
// query it applies the unique-set merge, the four running counters, and
// the summary append as one unit, so concurrent completions can never
// lose updates or double-count a key two queries both produced.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/crowdecho/crowdecho/internal/deduplication"
	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/fetcher"
	"github.com/crowdecho/crowdecho/internal/types"
)

// Aggregator coordinates one multi-query aggregation run.
type Aggregator struct {
	cfg Config
}

// New creates an Aggregator with the given configuration.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregator config: %w", err)
	}
	return &Aggregator{cfg: cfg}, nil
}

// queryResult is one worker's contribution to the merge loop.
type queryResult struct {
	query    string
	outcome  *types.QueryOutcome
	uniques  []types.UniqueComment
	bySource map[string]int
	crash    string
}

// Run executes all queries and returns the final run snapshot.
//
// Run errors only on invalid input; every runtime failure mode (source
// errors, crashed queries, failed persistence) is folded into the
// snapshot and the event stream. Reaching the target mid-run does not
// cancel dispatched queries: all submitted queries run to completion,
// and crossing the target is announced through a target_reached event
// so callers submitting queries incrementally can stop.
func (a *Aggregator) Run(ctx context.Context, queries []string, targetTotal int) (*types.RunSnapshot, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query is required")
	}
	if targetTotal <= 0 {
		return nil, fmt.Errorf("target must be positive (got %d)", targetTotal)
	}

	runID := uuid.NewString()
	started := time.Now()
	events.Emit(ctx, a.cfg.Sink, events.NewRunStartedEvent(runID, len(queries), targetTotal))

	subTarget := a.cfg.subTargetFor(targetTotal, len(queries))

	fcfg := a.cfg.Fetch
	fcfg.MaxRetries = a.cfg.PerQueryRetries
	fcfg.SubTarget = subTarget
	fcfg.Sink = a.cfg.Sink
	fcfg.RunID = runID
	f, err := fetcher.New(fcfg)
	if err != nil {
		return nil, err
	}

	workers := a.cfg.MaxConcurrency
	if len(queries) < workers {
		workers = len(queries)
	}
	sem := semaphore.NewWeighted(int64(workers))
	results := make(chan queryResult, len(queries))

	for _, query := range queries {
		go func(query string) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- queryResult{query: query, crash: fmt.Sprintf("not started: %v", err)}
				return
			}
			defer sem.Release(1)
			events.Emit(ctx, a.cfg.Sink, events.NewQueryStartedEvent(runID, query, subTarget))
			results <- a.runQuery(ctx, f, runID, query)
		}(query)
	}

	snapshot := a.mergeResults(ctx, runID, queries, targetTotal, results)
	snapshot.ProcessingTimeSeconds = time.Since(started).Seconds()
	snapshot.StartedAt = started
	snapshot.CompletedAt = time.Now()

	events.Emit(ctx, a.cfg.Sink, events.NewRunCompletedEvent(runID,
		snapshot.UniqueCount, snapshot.SuccessfulQueries, snapshot.FailedQueries,
		snapshot.TargetAchieved, time.Since(started)))

	a.persist(ctx, snapshot)
	return snapshot, nil
}

// runQuery executes one query's orchestration and computes its own
// unique-comment extraction. A panic anywhere inside is captured as a
// crashed query; siblings are unaffected.
func (a *Aggregator) runQuery(ctx context.Context, f *fetcher.Fetcher, runID, query string) (res queryResult) {
	res.query = query
	defer func() {
		if r := recover(); r != nil {
			res.outcome = nil
			res.uniques = nil
			res.crash = fmt.Sprintf("query crashed: %v", r)
		}
	}()

	outcome := f.Run(ctx, query)
	res.outcome = outcome

	res.bySource = make(map[string]int)
	for i := range outcome.Items {
		res.bySource[outcome.Items[i].SourceID]++
	}

	idx := deduplication.NewIndex(a.cfg.Dedup)
	idx.Merge(outcome.Items, "")
	res.uniques = idx.Comments()

	if a.cfg.Backup != nil && len(outcome.Items) > 0 {
		if _, err := a.cfg.Backup.SaveQueryItems(query, outcome.Items); err != nil {
			events.Emit(ctx, a.cfg.Sink, events.NewSnapshotSaveFailedEvent(runID,
				fmt.Sprintf("query backup for %q: %v", query, err)))
		}
	}
	return res
}

// mergeResults is the single consumer of worker results: the one
// critical section in the engine. It drains exactly len(queries)
// results in completion order.
func (a *Aggregator) mergeResults(ctx context.Context, runID string, queries []string, targetTotal int, results <-chan queryResult) *types.RunSnapshot {
	global := deduplication.NewIndex(a.cfg.Dedup)

	snapshot := &types.RunSnapshot{
		RunID:       runID,
		Queries:     append([]string(nil), queries...),
		Target:      targetTotal,
		SourceStats: make(map[string]types.SourceStat),
	}
	targetAnnounced := false

	for range queries {
		res := <-results

		if res.crash != "" || res.outcome == nil || len(res.outcome.Items) == 0 {
			summary := types.QuerySummary{
				Query:  res.query,
				Status: types.QueryStatusFailed,
				Error:  res.crash,
			}
			if summary.Error == "" {
				summary.Error = "no items collected"
			}
			if res.outcome != nil {
				summary.Attempts = res.outcome.AttemptsMade
				summary.Sources = res.outcome.SourcesUsed
			}
			snapshot.FailedQueries++
			snapshot.QueryResults = append(snapshot.QueryResults, summary)
			events.Emit(ctx, a.cfg.Sink, events.NewQueryFailedEvent(runID, res.query, summary.Error))
			continue
		}

		out := res.outcome
		newUnique, _ := global.MergeUnique(res.uniques)

		snapshot.TotalProcessedComments += out.TotalComments
		snapshot.TotalProcessedReplies += out.TotalReplies
		snapshot.SuccessfulQueries++
		snapshot.QueryResults = append(snapshot.QueryResults, types.QuerySummary{
			Query:             res.query,
			Status:            types.QueryStatusSuccess,
			TotalComments:     out.TotalComments,
			TotalReplies:      out.TotalReplies,
			UniqueComments:    len(res.uniques),
			NewUniqueComments: newUnique,
			Sources:           out.SourcesUsed,
			Attempts:          out.AttemptsMade,
		})

		for sourceID, count := range res.bySource {
			stat := snapshot.SourceStats[sourceID]
			stat.Queries++
			stat.TotalComments += count
			snapshot.SourceStats[sourceID] = stat
		}

		events.Emit(ctx, a.cfg.Sink, events.NewQueryCompletedEvent(runID, res.query,
			out.TotalComments, out.TotalReplies, newUnique, global.Len()))

		if !targetAnnounced && global.Len() >= targetTotal {
			targetAnnounced = true
			events.Emit(ctx, a.cfg.Sink, events.NewTargetReachedEvent(runID, global.Len(), targetTotal))
		}
	}

	for sourceID, stat := range snapshot.SourceStats {
		stat.AvgComments = float64(stat.TotalComments) / float64(stat.Queries)
		snapshot.SourceStats[sourceID] = stat
	}

	// QueryResults stays in completion order; that is the order the
	// merge actually happened in, and the order the events tell.
	snapshot.UniqueComments = global.Comments()
	snapshot.UniqueCount = global.Len()
	snapshot.GrandTotal = snapshot.TotalProcessedComments + snapshot.TotalProcessedReplies
	snapshot.TargetAchieved = snapshot.UniqueCount >= targetTotal
	return snapshot
}

// persist saves the snapshot to the store and the backup directory.
// Both are best-effort: failures are reported through the event stream
// and the snapshot is returned to the caller regardless.
func (a *Aggregator) persist(ctx context.Context, snapshot *types.RunSnapshot) {
	if a.cfg.Store != nil {
		if _, err := a.cfg.Store.SaveSnapshot(ctx, snapshot); err != nil {
			events.Emit(ctx, a.cfg.Sink, events.NewSnapshotSaveFailedEvent(snapshot.RunID, err.Error()))
		} else {
			events.Emit(ctx, a.cfg.Sink, events.NewSnapshotSavedEvent(snapshot.RunID, "database"))
		}
	}
	if a.cfg.Backup != nil {
		path, err := a.cfg.Backup.SaveSnapshot(snapshot)
		if err != nil {
			events.Emit(ctx, a.cfg.Sink, events.NewSnapshotSaveFailedEvent(snapshot.RunID, err.Error()))
		} else {
			events.Emit(ctx, a.cfg.Sink, events.NewSnapshotSavedEvent(snapshot.RunID, path))
		}
	}
}
