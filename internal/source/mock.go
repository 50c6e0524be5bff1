package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/crowdecho/crowdecho/internal/types"
)

// MockSource implements Source for testing and offline runs. It
// deterministically generates comments from the query text, so the same
// query always yields the same items, and shared texts can be injected
// to exercise cross-query deduplication.
type MockSource struct {
	// SourceName is returned by Name(). Defaults to "mock".
	SourceName string

	// CommentsPerFetch is how many generated comments one Fetch returns
	// (before SharedTexts are appended).
	CommentsPerFetch int

	// RepliesPerComment attaches this many generated replies to each
	// generated comment.
	RepliesPerComment int

	// SharedTexts are appended verbatim to every fetch regardless of
	// query, for duplicate-across-queries scenarios.
	SharedTexts []string

	// Err, when set, makes every Fetch fail with this error.
	Err error

	// FailFirstN makes the first N fetches fail with Err (or a generic
	// error when Err is nil), then succeed.
	FailFirstN int

	// Hang, when true, blocks Fetch until ctx is done and returns
	// ctx.Err(). Used to exercise source timeouts.
	Hang bool

	mu      sync.Mutex
	fetches int
}

// Name returns the configured source name.
func (m *MockSource) Name() string {
	if m.SourceName == "" {
		return "mock"
	}
	return m.SourceName
}

// FetchCount reports how many times Fetch has been called.
func (m *MockSource) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// Fetch generates deterministic comments for the query.
func (m *MockSource) Fetch(ctx context.Context, query string, limits FetchLimits) ([]types.Comment, error) {
	m.mu.Lock()
	m.fetches++
	n := m.fetches
	m.mu.Unlock()

	if m.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Err != nil && (m.FailFirstN == 0 || n <= m.FailFirstN) {
		return nil, m.Err
	}
	if m.Err == nil && m.FailFirstN > 0 && n <= m.FailFirstN {
		return nil, fmt.Errorf("mock fetch %d failed", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := m.CommentsPerFetch
	items := make([]types.Comment, 0, count+len(m.SharedTexts))
	for i := 0; i < count; i++ {
		c := types.Comment{
			Author:      fmt.Sprintf("%s-user-%d", m.Name(), i),
			Text:        fmt.Sprintf("%s comment %d about %s", m.Name(), i, query),
			LikeCount:   i,
			PublishedAt: "2026-01-01T00:00:00Z",
			OriginTitle: fmt.Sprintf("%s result for %s", m.Name(), query),
		}
		for j := 0; j < m.RepliesPerComment; j++ {
			c.Replies = append(c.Replies, types.Reply{
				Author:      fmt.Sprintf("%s-replier-%d", m.Name(), j),
				Text:        fmt.Sprintf("reply %d to comment %d about %s", j, i, query),
				PublishedAt: "2026-01-01T00:00:00Z",
			})
		}
		items = append(items, c)
	}
	for _, text := range m.SharedTexts {
		items = append(items, types.Comment{
			Author:      "shared-user",
			Text:        text,
			PublishedAt: "2026-01-01T00:00:00Z",
		})
	}
	return items, nil
}
