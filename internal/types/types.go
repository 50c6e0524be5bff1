package types

import (
	"fmt"
	"time"
)

// Comment is one fetched comment-like unit with zero or more replies.
// Comments are produced by a source adapter and are immutable once
// returned: the aggregation pipeline copies what it needs and never
// mutates the original.
//
// Origin fields describe where the comment was found (video title,
// subcommunity). Adapters fill them in; sources without a notion of
// subcommunity leave OriginSubcommunity empty. SourceID is stamped by
// the orchestrator when per-source results are flattened, so that
// downstream deduplication keeps per-item attribution.
type Comment struct {
	SourceID           string  `json:"source_id,omitempty"`
	Author             string  `json:"author"`
	Text               string  `json:"text"`
	LikeCount          int     `json:"like_count"`
	PublishedAt        string  `json:"published_at"`
	AuthorProfile      string  `json:"author_profile,omitempty"`
	OriginTitle        string  `json:"origin_title,omitempty"`
	OriginSubcommunity string  `json:"origin_subcommunity,omitempty"`
	Replies            []Reply `json:"replies,omitempty"`
}

// Reply is a single response to a Comment. Replies cannot nest; the
// type has no Replies field so the one-level limit is structural.
type Reply struct {
	Author        string `json:"author"`
	Text          string `json:"text"`
	LikeCount     int    `json:"like_count"`
	PublishedAt   string `json:"published_at"`
	AuthorProfile string `json:"author_profile,omitempty"`
}

// SourceResult is the outcome of one source fetch within one attempt.
// Exactly one of (Items, Err) is meaningful: a successful fetch carries
// items and a zero-length Err, a failed fetch carries an error message
// and no items.
type SourceResult struct {
	SourceID      string    `json:"source_id"`
	Items         []Comment `json:"items,omitempty"`
	TotalComments int       `json:"total_comments"`
	Err           string    `json:"error,omitempty"`
}

// Failed reports whether this result represents a source failure.
func (r *SourceResult) Failed() bool {
	return r.Err != ""
}

// Validate checks the success-xor-error invariant.
func (r *SourceResult) Validate() error {
	if r.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if r.Err != "" && len(r.Items) > 0 {
		return fmt.Errorf("source result for %s has both items and error %q", r.SourceID, r.Err)
	}
	return nil
}

// AttemptOutcome records what one orchestrator attempt produced across
// all configured sources. It exists only inside a single query run and
// is discarded once folded into the accumulated totals.
type AttemptOutcome struct {
	AttemptNumber       int                      `json:"attempt_number"`
	PerSource           map[string]*SourceResult `json:"per_source"`
	CommentsThisAttempt int                      `json:"comments_this_attempt"`
	RepliesThisAttempt  int                      `json:"replies_this_attempt"`
}

// QueryOutcome is the final product of one per-query orchestration run.
// It is created once by the orchestrator and immutable thereafter.
//
// SourcesUsed is the union of sources that succeeded on any attempt.
// Errors holds the last error seen per source across all attempts.
type QueryOutcome struct {
	Query          string            `json:"query"`
	Items          []Comment         `json:"items,omitempty"`
	TotalComments  int               `json:"total_comments"`
	TotalReplies   int               `json:"total_replies"`
	SourcesUsed    []string          `json:"sources_used,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
	TargetAchieved bool              `json:"target_achieved"`
	AttemptsMade   int               `json:"attempts_made"`
}

// GrandTotal returns comments plus replies collected for this query.
func (q *QueryOutcome) GrandTotal() int {
	return q.TotalComments + q.TotalReplies
}

// UniqueComment is the canonical merged record for one normalized
// comment text. The first occurrence of a key owns the metadata; later
// duplicates of the same key only contribute new replies.
type UniqueComment struct {
	Key                string        `json:"key"`
	Author             string        `json:"author"`
	Text               string        `json:"text"`
	LikeCount          int           `json:"like_count"`
	PublishedAt        string        `json:"published_at"`
	AuthorProfile      string        `json:"author_profile,omitempty"`
	SourceID           string        `json:"source_id"`
	OriginTitle        string        `json:"origin_title,omitempty"`
	OriginSubcommunity string        `json:"origin_subcommunity,omitempty"`
	Replies            []UniqueReply `json:"replies,omitempty"`
}

// UniqueReply is a deduplicated reply within its parent UniqueComment.
// Replies are deduplicated by trimmed-text equality against the replies
// already attached to that comment.
type UniqueReply struct {
	Author        string `json:"author"`
	Text          string `json:"text"`
	LikeCount     int    `json:"like_count"`
	PublishedAt   string `json:"published_at"`
	AuthorProfile string `json:"author_profile,omitempty"`
	SourceID      string `json:"source_id"`
}

// QueryStatus labels a per-query summary as successful or failed.
type QueryStatus string

const (
	// QueryStatusSuccess means the query produced at least one item.
	// Meeting the sub-target is not required for success.
	QueryStatusSuccess QueryStatus = "success"
	// QueryStatusFailed means the query produced no items or crashed.
	QueryStatusFailed QueryStatus = "failed"
)

// QuerySummary is the retained per-query record inside an aggregation
// result, in query completion order.
type QuerySummary struct {
	Query             string      `json:"query"`
	Status            QueryStatus `json:"status"`
	TotalComments     int         `json:"total_comments"`
	TotalReplies      int         `json:"total_replies"`
	UniqueComments    int         `json:"unique_comments"`
	NewUniqueComments int         `json:"new_unique_comments"`
	Sources           []string    `json:"sources,omitempty"`
	Attempts          int         `json:"attempts"`
	Error             string      `json:"error,omitempty"`
}

// SourceStat summarizes one source's yield across a run. The analyzer
// compares AvgComments between sources to recommend prioritization.
type SourceStat struct {
	Queries       int     `json:"queries"`
	TotalComments int     `json:"total_comments"`
	AvgComments   float64 `json:"avg_comments"`
}

// RunSnapshot is the public result contract returned by the aggregator
// and the unit persisted by the storage layer. It is a read-only
// snapshot: once the aggregator hands it out, nothing mutates it.
type RunSnapshot struct {
	RunID                  string                `json:"run_id"`
	Queries                []string              `json:"queries"`
	Target                 int                   `json:"target"`
	UniqueComments         []UniqueComment       `json:"unique_comments,omitempty"`
	UniqueCount            int                   `json:"unique_count"`
	TotalProcessedComments int                   `json:"total_processed_comments"`
	TotalProcessedReplies  int                   `json:"total_processed_replies"`
	GrandTotal             int                   `json:"grand_total"`
	SuccessfulQueries      int                   `json:"successful_queries"`
	FailedQueries          int                   `json:"failed_queries"`
	QueryResults           []QuerySummary        `json:"query_results,omitempty"`
	SourceStats            map[string]SourceStat `json:"source_stats,omitempty"`
	TargetAchieved         bool                  `json:"target_achieved"`
	ProcessingTimeSeconds  float64               `json:"processing_time_seconds"`
	StartedAt              time.Time             `json:"started_at"`
	CompletedAt            time.Time             `json:"completed_at"`
}

// Validate checks internal consistency of a snapshot before it is
// persisted or returned to a caller.
func (s *RunSnapshot) Validate() error {
	if s.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if s.UniqueCount != len(s.UniqueComments) {
		return fmt.Errorf("unique_count (%d) does not match unique_comments length (%d)",
			s.UniqueCount, len(s.UniqueComments))
	}
	if s.GrandTotal != s.TotalProcessedComments+s.TotalProcessedReplies {
		return fmt.Errorf("grand_total (%d) does not match comments+replies (%d)",
			s.GrandTotal, s.TotalProcessedComments+s.TotalProcessedReplies)
	}
	if s.SuccessfulQueries+s.FailedQueries > len(s.Queries) {
		return fmt.Errorf("successful (%d) + failed (%d) queries exceed query count (%d)",
			s.SuccessfulQueries, s.FailedQueries, len(s.Queries))
	}
	return nil
}

// CountReplies sums the reply-list lengths across a batch of comments.
func CountReplies(items []Comment) int {
	total := 0
	for i := range items {
		total += len(items[i].Replies)
	}
	return total
}
