package aggregator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/source"
	"github.com/crowdecho/crowdecho/internal/storage"
	"github.com/crowdecho/crowdecho/internal/types"
)

func testConfig(sources ...source.Source) Config {
	cfg := DefaultConfig()
	cfg.Fetch.Sources = sources
	cfg.Fetch.PauseBetweenAttempts = 0
	cfg.SubTargetFloor = 10
	return cfg
}

func sharedTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("everyone posts this exact take %d", i)
	}
	return texts
}

func TestConfigValidate(t *testing.T) {
	mock := &source.MockSource{CommentsPerFetch: 1}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "default with source is valid", mutate: func(c *Config) {}},
		{name: "no sources", mutate: func(c *Config) { c.Fetch.Sources = nil }, expectError: true},
		{name: "zero per-query retries", mutate: func(c *Config) { c.PerQueryRetries = 0 }, expectError: true},
		{name: "zero sub-target floor", mutate: func(c *Config) { c.SubTargetFloor = 0 }, expectError: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.MaxConcurrency = 0 }, expectError: true},
		{name: "bad dedup thresholds", mutate: func(c *Config) { c.Dedup.MinCommentLength = 0 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(mock)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSubTargetFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SubTargetFloor = 1000

	if got := cfg.subTargetFor(900, 3); got != 1000 {
		t.Errorf("small target sub-target = %d, want floor 1000", got)
	}
	if got := cfg.subTargetFor(12000, 3); got != 4000 {
		t.Errorf("large target sub-target = %d, want 4000", got)
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	a, err := New(testConfig(&source.MockSource{CommentsPerFetch: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Run(context.Background(), nil, 100); err == nil {
		t.Error("expected error for empty query list")
	}
	if _, err := a.Run(context.Background(), []string{"q"}, 0); err == nil {
		t.Error("expected error for non-positive target")
	}
}

func TestRunEndToEnd(t *testing.T) {
	// Per query: youtube yields 40 query-unique comments (one reply
	// each), reddit yields the same 10 texts for every query. Across 3
	// queries that is 120 query-unique plus the shared 10 counted once.
	youtube := &source.MockSource{SourceName: "youtube", CommentsPerFetch: 40, RepliesPerComment: 1}
	reddit := &source.MockSource{SourceName: "reddit", SharedTexts: sharedTexts(10)}

	sink := events.NewMemorySink()
	cfg := testConfig(youtube, reddit)
	cfg.Sink = sink

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	queries := []string{"go generics", "go iterators", "go arenas"}
	snap, err := a.Run(context.Background(), queries, 100)
	if err != nil {
		t.Fatal(err)
	}

	if snap.UniqueCount != 130 {
		t.Errorf("unique count = %d, want 130 (120 query-unique + 10 shared once)", snap.UniqueCount)
	}
	if len(snap.UniqueComments) != snap.UniqueCount {
		t.Errorf("unique_comments length %d != unique_count %d", len(snap.UniqueComments), snap.UniqueCount)
	}
	if snap.SuccessfulQueries != 3 || snap.FailedQueries != 0 {
		t.Errorf("queries = %d success / %d failed, want 3/0", snap.SuccessfulQueries, snap.FailedQueries)
	}
	if !snap.TargetAchieved {
		t.Error("expected target achieved (130 >= 100)")
	}

	// Counter consistency against the per-query summaries.
	sumComments, sumReplies := 0, 0
	for _, qr := range snap.QueryResults {
		if qr.Status != types.QueryStatusSuccess {
			t.Errorf("query %q status = %q, want success", qr.Query, qr.Status)
		}
		sumComments += qr.TotalComments
		sumReplies += qr.TotalReplies
	}
	if snap.TotalProcessedComments != sumComments || snap.TotalProcessedComments != 150 {
		t.Errorf("total comments = %d (summaries sum %d), want 150", snap.TotalProcessedComments, sumComments)
	}
	if snap.TotalProcessedReplies != sumReplies || snap.TotalProcessedReplies != 120 {
		t.Errorf("total replies = %d (summaries sum %d), want 120", snap.TotalProcessedReplies, sumReplies)
	}
	if snap.GrandTotal != snap.TotalProcessedComments+snap.TotalProcessedReplies {
		t.Errorf("grand total = %d, want comments+replies", snap.GrandTotal)
	}
	if snap.UniqueCount > snap.TotalProcessedComments {
		t.Error("unique count must never exceed processed comments")
	}

	ytStat := snap.SourceStats["youtube"]
	if ytStat.Queries != 3 || ytStat.TotalComments != 120 || ytStat.AvgComments != 40 {
		t.Errorf("youtube stats = %+v, want 3 queries / 120 comments / avg 40", ytStat)
	}
	rdStat := snap.SourceStats["reddit"]
	if rdStat.Queries != 3 || rdStat.TotalComments != 30 || rdStat.AvgComments != 10 {
		t.Errorf("reddit stats = %+v, want 3 queries / 30 comments / avg 10", rdStat)
	}

	if got := sink.Events(events.EventFilter{Type: events.EventTypeTargetReached}); len(got) != 1 {
		t.Errorf("target_reached events = %d, want exactly 1", len(got))
	}
	if got := sink.Events(events.EventFilter{Type: events.EventTypeRunCompleted}); len(got) != 1 {
		t.Errorf("run_completed events = %d, want 1", len(got))
	}
	if got := sink.Events(events.EventFilter{Type: events.EventTypeQueryCompleted}); len(got) != 3 {
		t.Errorf("query_completed events = %d, want 3", len(got))
	}
}

// scriptedSource fails or yields per query, for per-query failure
// scenarios that a query-agnostic mock cannot express.
type scriptedSource struct {
	name  string
	items map[string][]types.Comment
	errs  map[string]error
}

func (s *scriptedSource) Name() string { return s.name }
func (s *scriptedSource) Fetch(_ context.Context, query string, _ source.FetchLimits) ([]types.Comment, error) {
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.items[query], nil
}

func TestRunFailedQueryDoesNotAbortSiblings(t *testing.T) {
	src := &scriptedSource{
		name: "youtube",
		items: map[string][]types.Comment{
			"good topic": {
				{Author: "ada", Text: "a thoughtful comment"},
				{Author: "bob", Text: "another thoughtful comment"},
			},
		},
		errs: map[string]error{"bad topic": errors.New("quota exceeded")},
	}
	sink := events.NewMemorySink()
	cfg := testConfig(src)
	cfg.Sink = sink

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := a.Run(context.Background(), []string{"good topic", "bad topic"}, 50)
	if err != nil {
		t.Fatal(err)
	}

	if snap.SuccessfulQueries != 1 || snap.FailedQueries != 1 {
		t.Fatalf("queries = %d success / %d failed, want 1/1", snap.SuccessfulQueries, snap.FailedQueries)
	}
	if snap.UniqueCount != 2 {
		t.Errorf("unique count = %d, want 2 from the surviving query", snap.UniqueCount)
	}

	var failed *types.QuerySummary
	for i := range snap.QueryResults {
		if snap.QueryResults[i].Status == types.QueryStatusFailed {
			failed = &snap.QueryResults[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a failed query summary")
	}
	if failed.Query != "bad topic" || failed.Error == "" {
		t.Errorf("failed summary = %+v, want bad topic with explanatory message", failed)
	}
	if got := sink.Events(events.EventFilter{Type: events.EventTypeQueryFailed}); len(got) != 1 {
		t.Errorf("query_failed events = %d, want 1", len(got))
	}
}

func TestRunMergeIsOrderIndependent(t *testing.T) {
	// Same queries, two submission orders: the unique key set and the
	// counters must agree. Metadata ownership on shared keys may differ.
	build := func(queries []string) *types.RunSnapshot {
		youtube := &source.MockSource{SourceName: "youtube", CommentsPerFetch: 5, SharedTexts: sharedTexts(4)}
		cfg := testConfig(youtube)
		cfg.MaxConcurrency = 2
		a, err := New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		snap, err := a.Run(context.Background(), queries, 1000)
		if err != nil {
			t.Fatal(err)
		}
		return snap
	}

	forward := build([]string{"alpha", "beta", "gamma"})
	reversed := build([]string{"gamma", "beta", "alpha"})

	keysOf := func(s *types.RunSnapshot) []string {
		keys := make([]string, 0, len(s.UniqueComments))
		for _, uc := range s.UniqueComments {
			keys = append(keys, uc.Key)
		}
		sort.Strings(keys)
		return keys
	}

	if !reflect.DeepEqual(keysOf(forward), keysOf(reversed)) {
		t.Error("unique key sets differ across submission orders")
	}
	if forward.UniqueCount != reversed.UniqueCount {
		t.Errorf("unique counts differ: %d vs %d", forward.UniqueCount, reversed.UniqueCount)
	}
	if forward.TotalProcessedComments != reversed.TotalProcessedComments ||
		forward.TotalProcessedReplies != reversed.TotalProcessedReplies {
		t.Error("processed counters differ across submission orders")
	}
}

func TestRunTargetNotAchieved(t *testing.T) {
	mock := &source.MockSource{SourceName: "youtube", CommentsPerFetch: 2}
	cfg := testConfig(mock)

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := a.Run(context.Background(), []string{"thin topic"}, 10000)
	if err != nil {
		t.Fatal(err)
	}

	if snap.TargetAchieved {
		t.Error("target should not be achieved")
	}
	if snap.SuccessfulQueries != 1 {
		t.Errorf("successful queries = %d, want 1 (success means non-empty, not sub-target met)", snap.SuccessfulQueries)
	}
}

func TestRunPersistsSnapshotAndBackup(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	backupDir := filepath.Join(t.TempDir(), "backups")
	sink := events.NewMemorySink()

	mock := &source.MockSource{SourceName: "youtube", CommentsPerFetch: 3}
	cfg := testConfig(mock)
	cfg.Sink = events.NewMultiSink(sink, storage.NewEventSink(store))
	cfg.Store = store
	cfg.Backup = storage.NewFileBackup(backupDir)

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := a.Run(ctx, []string{"persisted topic"}, 2)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := store.GetSnapshot(ctx, snap.RunID)
	if err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	if stored.UniqueCount != snap.UniqueCount {
		t.Errorf("stored unique count = %d, want %d", stored.UniqueCount, snap.UniqueCount)
	}

	storedEvents, err := store.GetEvents(ctx, events.EventFilter{RunID: snap.RunID})
	if err != nil {
		t.Fatal(err)
	}
	if len(storedEvents) == 0 {
		t.Error("expected run events persisted through the storage sink")
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	// One per-query items backup plus the final snapshot backup.
	if len(entries) != 2 {
		t.Errorf("backup files = %d, want 2", len(entries))
	}

	if got := sink.Events(events.EventFilter{Type: events.EventTypeSnapshotSaved}); len(got) != 2 {
		t.Errorf("snapshot_saved events = %d, want 2 (database + file)", len(got))
	}
}
