package deduplication

import (
	"strings"
	"unicode/utf8"

	"github.com/crowdecho/crowdecho/internal/types"
)

// NormalizeKey returns the deduplication key for a comment or reply
// text: the text with surrounding whitespace trimmed. All admission
// checks and map lookups go through this function.
func NormalizeKey(text string) string {
	return strings.TrimSpace(text)
}

// Index accumulates unique comments across any number of Merge calls.
// It preserves first-seen order and first-seen metadata per key.
//
// Index is not safe for concurrent use; the aggregator serializes all
// access through its merge critical section.
type Index struct {
	cfg   Config
	byKey map[string]*types.UniqueComment
	order []string
}

// NewIndex creates an empty index with the given configuration.
func NewIndex(cfg Config) *Index {
	return &Index{
		cfg:   cfg,
		byKey: make(map[string]*types.UniqueComment),
	}
}

// Len returns the number of unique comments in the index.
func (x *Index) Len() int {
	return len(x.byKey)
}

// Merge folds a batch of raw comments from one source into the index.
// It returns how many new unique comments and new replies were added.
//
// Items are processed in input order. A comment whose normalized key is
// shorter than MinCommentLength is skipped entirely. Replies shorter
// than MinReplyLength, or exactly matching a reply already attached to
// that comment, are dropped. Reply comparison is a linear scan of the
// existing reply texts, keeping insertion order stable.
//
// sourceID is the fallback attribution for items that were not stamped
// with their own SourceID during flattening.
func (x *Index) Merge(items []types.Comment, sourceID string) (commentsAdded, repliesAdded int) {
	for i := range items {
		item := &items[i]
		itemSource := item.SourceID
		if itemSource == "" {
			itemSource = sourceID
		}
		key := NormalizeKey(item.Text)
		if utf8.RuneCountInString(key) < x.cfg.MinCommentLength {
			continue
		}

		uc, exists := x.byKey[key]
		if !exists {
			uc = &types.UniqueComment{
				Key:                key,
				Author:             item.Author,
				Text:               key,
				LikeCount:          item.LikeCount,
				PublishedAt:        item.PublishedAt,
				AuthorProfile:      item.AuthorProfile,
				SourceID:           itemSource,
				OriginTitle:        item.OriginTitle,
				OriginSubcommunity: item.OriginSubcommunity,
			}
			x.byKey[key] = uc
			x.order = append(x.order, key)
			commentsAdded++
		}

		for j := range item.Replies {
			reply := &item.Replies[j]
			rkey := NormalizeKey(reply.Text)
			if utf8.RuneCountInString(rkey) < x.cfg.MinReplyLength {
				continue
			}
			if containsReplyText(uc.Replies, rkey) {
				continue
			}
			uc.Replies = append(uc.Replies, types.UniqueReply{
				Author:        reply.Author,
				Text:          rkey,
				LikeCount:     reply.LikeCount,
				PublishedAt:   reply.PublishedAt,
				AuthorProfile: reply.AuthorProfile,
				SourceID:      itemSource,
			})
			repliesAdded++
		}
	}
	return commentsAdded, repliesAdded
}

// MergeUnique folds already-deduplicated comments (typically one
// query's extraction) into the index. The first query to insert a key
// wins its metadata; later occurrences can still add new replies.
// Returns new unique comments and new replies added.
func (x *Index) MergeUnique(uniques []types.UniqueComment) (commentsAdded, repliesAdded int) {
	for i := range uniques {
		in := &uniques[i]
		key := NormalizeKey(in.Text)
		if utf8.RuneCountInString(key) < x.cfg.MinCommentLength {
			continue
		}

		uc, exists := x.byKey[key]
		if !exists {
			clone := *in
			clone.Key = key
			clone.Text = key
			clone.Replies = append([]types.UniqueReply(nil), in.Replies...)
			x.byKey[key] = &clone
			x.order = append(x.order, key)
			commentsAdded++
			repliesAdded += len(clone.Replies)
			continue
		}

		for j := range in.Replies {
			r := in.Replies[j]
			rkey := NormalizeKey(r.Text)
			if utf8.RuneCountInString(rkey) < x.cfg.MinReplyLength {
				continue
			}
			if containsReplyText(uc.Replies, rkey) {
				continue
			}
			r.Text = rkey
			uc.Replies = append(uc.Replies, r)
			repliesAdded++
		}
	}
	return commentsAdded, repliesAdded
}

// Comments returns the unique comments in first-seen order. The
// returned slice holds copies; mutating it does not affect the index.
func (x *Index) Comments() []types.UniqueComment {
	out := make([]types.UniqueComment, 0, len(x.order))
	for _, key := range x.order {
		uc := x.byKey[key]
		clone := *uc
		clone.Replies = append([]types.UniqueReply(nil), uc.Replies...)
		out = append(out, clone)
	}
	return out
}

// Keys returns the set of dedup keys in first-seen order.
func (x *Index) Keys() []string {
	return append([]string(nil), x.order...)
}

// Get looks up a unique comment by its normalized key.
func (x *Index) Get(key string) (types.UniqueComment, bool) {
	uc, ok := x.byKey[key]
	if !ok {
		return types.UniqueComment{}, false
	}
	clone := *uc
	clone.Replies = append([]types.UniqueReply(nil), uc.Replies...)
	return clone, true
}

// Merge is the one-shot form: it deduplicates a single batch of raw
// comments and returns the unique set in first-seen order along with
// the comment and reply counts. Used by the aggregator to compute
// per-query unique extractions without touching shared state.
func Merge(items []types.Comment, sourceID string) ([]types.UniqueComment, int, int) {
	idx := NewIndex(DefaultConfig())
	added, replies := idx.Merge(items, sourceID)
	return idx.Comments(), added, replies
}

func containsReplyText(replies []types.UniqueReply, text string) bool {
	for i := range replies {
		if replies[i].Text == text {
			return true
		}
	}
	return false
}
