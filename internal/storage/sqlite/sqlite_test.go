package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/types"
)

func testStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(runID string) *types.RunSnapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.RunSnapshot{
		RunID:   runID,
		Queries: []string{"go generics", "go iterators"},
		Target:  100,
		UniqueComments: []types.UniqueComment{
			{Key: "nice talk", Author: "ada", Text: "nice talk", SourceID: "youtube",
				Replies: []types.UniqueReply{{Author: "bob", Text: "agreed", SourceID: "youtube"}}},
			{Key: "disagree", Author: "eve", Text: "disagree", SourceID: "reddit"},
		},
		UniqueCount:            2,
		TotalProcessedComments: 3,
		TotalProcessedReplies:  1,
		GrandTotal:             4,
		SuccessfulQueries:      2,
		QueryResults: []types.QuerySummary{
			{Query: "go generics", Status: types.QueryStatusSuccess, TotalComments: 2, NewUniqueComments: 2},
			{Query: "go iterators", Status: types.QueryStatusSuccess, TotalComments: 1},
		},
		SourceStats: map[string]types.SourceStat{
			"youtube": {Queries: 2, TotalComments: 2, AvgComments: 1},
		},
		ProcessingTimeSeconds: 1.5,
		StartedAt:             now.Add(-2 * time.Second),
		CompletedAt:           now,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.SaveSnapshot(ctx, testSnapshot("run-1"))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := store.GetSnapshot(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.UniqueCount)
	assert.Len(t, got.UniqueComments, 2)
	assert.Equal(t, "agreed", got.UniqueComments[0].Replies[0].Text)
	assert.Equal(t, 4, got.GrandTotal)
	assert.Len(t, got.QueryResults, 2)
	require.Contains(t, got.SourceStats, "youtube")
	assert.Equal(t, 2, got.SourceStats["youtube"].Queries)
}

func TestSaveSnapshotRejectsInvalid(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, nil)
	assert.Error(t, err)

	bad := testSnapshot("run-bad")
	bad.UniqueCount = 99
	_, err = store.SaveSnapshot(ctx, bad)
	assert.Error(t, err, "count mismatch must not be persisted")
}

func TestSaveSnapshotReplacesSameRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := testSnapshot("run-1")
	_, err := store.SaveSnapshot(ctx, first)
	require.NoError(t, err)

	second := testSnapshot("run-1")
	second.Target = 500
	_, err = store.SaveSnapshot(ctx, second)
	require.NoError(t, err)

	got, err := store.GetSnapshot(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 500, got.Target)

	list, err := store.ListRecentSnapshots(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1, "re-saving a run must not duplicate it")
}

func TestGetSnapshotNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetSnapshot(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestListRecentSnapshotsOrdering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, runID := range []string{"run-old", "run-mid", "run-new"} {
		snap := testSnapshot(runID)
		snap.CompletedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := store.SaveSnapshot(ctx, snap)
		require.NoError(t, err)
	}

	list, err := store.ListRecentSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-new", list[0].RunID)
	assert.Equal(t, "run-mid", list[1].RunID)
}

func TestStoreAndFilterEvents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	e1 := events.NewRunStartedEvent("run-1", 2, 100)
	e2 := events.NewQueryFailedEvent("run-1", "empty topic", "no items collected")
	e3 := events.NewRunStartedEvent("run-2", 1, 50)

	for _, e := range []*events.Event{e1, e2, e3} {
		require.NoError(t, store.StoreEvent(ctx, e))
		assert.Greater(t, e.ID, int64(0), "stored event gets its row ID back")
	}

	byRun, err := store.GetEvents(ctx, events.EventFilter{RunID: "run-1"})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	byType, err := store.GetEvents(ctx, events.EventFilter{Type: events.EventTypeQueryFailed})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "empty topic", byType[0].Query)
	assert.Equal(t, events.SeverityWarning, byType[0].Severity)
	assert.Equal(t, "no items collected", byType[0].Data["reason"])

	limited, err := store.GetEvents(ctx, events.EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, events.EventTypeRunStarted, limited[0].Type, "oldest first")
}

func TestStoreEventValidation(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	assert.Error(t, store.StoreEvent(ctx, nil))
	assert.Error(t, store.StoreEvent(ctx, &events.Event{RunID: "run-1"}), "missing type")
	assert.Error(t, store.StoreEvent(ctx, &events.Event{Type: events.EventTypeRunStarted}), "missing run_id")
}
