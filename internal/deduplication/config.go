package deduplication

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds thresholds for the deduplication engine
type Config struct {
	// MinCommentLength is the minimum trimmed-text length, in characters,
	// for a comment to be admitted to the unique set. Shorter texts ("ok",
	// "+1") carry
	// no semantic weight and would collide constantly.
	// Default: 3
	MinCommentLength int

	// MinReplyLength is the minimum trimmed-text length, in characters,
	// for a reply to be kept on its parent comment.
	// Default: 4
	MinReplyLength int
}

// DefaultConfig returns the default deduplication configuration
func DefaultConfig() Config {
	return Config{
		MinCommentLength: 3,
		MinReplyLength:   4,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for anything unset:
//   - CROWDECHO_DEDUP_MIN_COMMENT_LEN
//   - CROWDECHO_DEDUP_MIN_REPLY_LEN
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CROWDECHO_DEDUP_MIN_COMMENT_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid CROWDECHO_DEDUP_MIN_COMMENT_LEN %q: %w", v, err)
		}
		cfg.MinCommentLength = n
	}
	if v := os.Getenv("CROWDECHO_DEDUP_MIN_REPLY_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid CROWDECHO_DEDUP_MIN_REPLY_LEN %q: %w", v, err)
		}
		cfg.MinReplyLength = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MinCommentLength < 1 {
		return fmt.Errorf("min_comment_length must be positive (got %d)", c.MinCommentLength)
	}
	if c.MinReplyLength < 1 {
		return fmt.Errorf("min_reply_length must be positive (got %d)", c.MinReplyLength)
	}
	return nil
}
