// Package deduplication folds raw fetched comments into a canonical
// unique set keyed by normalized comment text.
//
// # Overview
//
// Multiple queries against multiple sources return overlapping comments:
// the same comment text shows up under different queries, and replies
// repeat within a thread. The deduplication engine merges all of it into
// one map of normalized text -> UniqueComment, preserving first-seen
// order and first-seen metadata.
//
// # Normalization
//
// The dedup key is the comment text with surrounding whitespace trimmed
// (NormalizeKey). Comments whose key is shorter than MinCommentLength
// runes of text are never admitted; replies shorter than MinReplyLength
// are dropped. The rule lives in one named function so a change to
// normalization cannot drift silently across call sites.
//
// # Merge semantics
//
//   - First occurrence of a key inserts a new UniqueComment and counts
//     as one new comment.
//   - Later occurrences of the same key contribute only replies; the
//     original metadata (author, likes, source, origin) is kept.
//   - Replies are deduplicated within their parent by exact trimmed-text
//     equality, scanning the existing reply list linearly. Insertion
//     order is preserved.
//
// Merging the same input twice yields the same unique set as merging it
// once, which makes retry loops safe.
//
// # Usage
//
//	idx := deduplication.NewIndex(deduplication.DefaultConfig())
//	added, replies := idx.Merge(items, "youtube")
//	uniques := idx.Comments()
//
// For a one-shot per-query extraction without shared state:
//
//	uniques, added, replies := deduplication.Merge(items, "youtube")
package deduplication
