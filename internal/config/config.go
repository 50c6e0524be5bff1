// Package config loads engine configuration from a YAML file with
// CROWDECHO_* environment overrides. Precedence: defaults, then file,
// then environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full engine configuration
type Config struct {
	// Target is the global unique-comment target for a run
	// Default: 1000
	Target int `yaml:"target"`

	// PerQueryRetries is the retry budget per query inside a run
	// Default: 1
	PerQueryRetries int `yaml:"per_query_retries"`

	// SubTargetFloor is the minimum per-query sub-target
	// Default: 1000
	SubTargetFloor int `yaml:"sub_target_floor"`

	// MaxConcurrency caps concurrent query workers
	// Default: 8
	MaxConcurrency int `yaml:"max_concurrency"`

	// AttemptTimeoutSeconds bounds each source call within an attempt
	// Default: 120
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds"`

	// TimeoutMultiplier scales the attempt timeout (set from the
	// analyzer's adaptive strategy on escalated runs)
	// Default: 1.0
	TimeoutMultiplier float64 `yaml:"timeout_multiplier"`

	// PauseSeconds is the delay between retry attempts
	// Default: 2
	PauseSeconds int `yaml:"pause_seconds"`

	// MinCommentLength / MinReplyLength are the dedup admission
	// thresholds
	// Defaults: 3 / 4
	MinCommentLength int `yaml:"min_comment_length"`
	MinReplyLength   int `yaml:"min_reply_length"`

	// Sources configures the per-source adapters
	Sources SourcesConfig `yaml:"sources"`

	// DBPath is the SQLite database file path
	// Default: ".crowdecho/runs.db"
	DBPath string `yaml:"db_path"`

	// BackupDir is where JSON backups are written
	// Default: ".crowdecho/backups"
	BackupDir string `yaml:"backup_dir"`

	// AnthropicAPIKey enables AI query variations when set (falls back
	// to ANTHROPIC_API_KEY in the environment)
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Model overrides the variation-generation model
	Model string `yaml:"model"`
}

// SourcesConfig holds per-source adapter configuration
type SourcesConfig struct {
	YouTube SourceConfig `yaml:"youtube"`
	Reddit  SourceConfig `yaml:"reddit"`
}

// SourceConfig configures one source adapter
type SourceConfig struct {
	// Enabled turns the adapter on
	Enabled bool `yaml:"enabled"`

	// APIKeys is a comma-separated key list for rotation
	APIKeys string `yaml:"api_keys"`

	// UserAgent overrides the request user agent (reddit only)
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Target:                1000,
		PerQueryRetries:       1,
		SubTargetFloor:        1000,
		MaxConcurrency:        8,
		AttemptTimeoutSeconds: 120,
		TimeoutMultiplier:     1.0,
		PauseSeconds:          2,
		MinCommentLength:      3,
		MinReplyLength:        4,
		Sources: SourcesConfig{
			YouTube: SourceConfig{Enabled: true},
			Reddit:  SourceConfig{Enabled: true},
		},
		DBPath:    ".crowdecho/runs.db",
		BackupDir: ".crowdecho/backups",
	}
}

// Load reads configuration from path (if it exists), applies
// environment overrides, and validates the result. An empty path skips
// the file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from CROWDECHO_* environment variables.
func (c *Config) applyEnv() error {
	intVars := []struct {
		name string
		dst  *int
	}{
		{"CROWDECHO_TARGET", &c.Target},
		{"CROWDECHO_PER_QUERY_RETRIES", &c.PerQueryRetries},
		{"CROWDECHO_SUB_TARGET_FLOOR", &c.SubTargetFloor},
		{"CROWDECHO_MAX_CONCURRENCY", &c.MaxConcurrency},
		{"CROWDECHO_ATTEMPT_TIMEOUT_SECONDS", &c.AttemptTimeoutSeconds},
		{"CROWDECHO_PAUSE_SECONDS", &c.PauseSeconds},
		{"CROWDECHO_DEDUP_MIN_COMMENT_LEN", &c.MinCommentLength},
		{"CROWDECHO_DEDUP_MIN_REPLY_LEN", &c.MinReplyLength},
	}
	for _, v := range intVars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", v.name, raw, err)
		}
		*v.dst = n
	}

	if raw := os.Getenv("CROWDECHO_TIMEOUT_MULTIPLIER"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid CROWDECHO_TIMEOUT_MULTIPLIER %q: %w", raw, err)
		}
		c.TimeoutMultiplier = f
	}

	if v := os.Getenv("CROWDECHO_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("CROWDECHO_BACKUP_DIR"); v != "" {
		c.BackupDir = v
	}
	if v := os.Getenv("CROWDECHO_YOUTUBE_API_KEYS"); v != "" {
		c.Sources.YouTube.APIKeys = v
	}
	if v := os.Getenv("CROWDECHO_REDDIT_USER_AGENT"); v != "" {
		c.Sources.Reddit.UserAgent = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.AnthropicAPIKey == "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("CROWDECHO_MODEL"); v != "" {
		c.Model = v
	}

	boolVars := []struct {
		name string
		dst  *bool
	}{
		{"CROWDECHO_YOUTUBE_ENABLED", &c.Sources.YouTube.Enabled},
		{"CROWDECHO_REDDIT_ENABLED", &c.Sources.Reddit.Enabled},
	}
	for _, v := range boolVars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", v.name, raw, err)
		}
		*v.dst = b
	}
	return nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.Target <= 0 {
		return fmt.Errorf("target must be positive (got %d)", c.Target)
	}
	if c.PerQueryRetries <= 0 {
		return fmt.Errorf("per_query_retries must be positive (got %d)", c.PerQueryRetries)
	}
	if c.SubTargetFloor <= 0 {
		return fmt.Errorf("sub_target_floor must be positive (got %d)", c.SubTargetFloor)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive (got %d)", c.MaxConcurrency)
	}
	if c.AttemptTimeoutSeconds <= 0 {
		return fmt.Errorf("attempt_timeout_seconds must be positive (got %d)", c.AttemptTimeoutSeconds)
	}
	if c.TimeoutMultiplier <= 0 {
		return fmt.Errorf("timeout_multiplier must be positive (got %v)", c.TimeoutMultiplier)
	}
	if c.PauseSeconds < 0 {
		return fmt.Errorf("pause_seconds cannot be negative (got %d)", c.PauseSeconds)
	}
	if c.MinCommentLength < 1 || c.MinReplyLength < 1 {
		return fmt.Errorf("dedup thresholds must be positive (got %d/%d)",
			c.MinCommentLength, c.MinReplyLength)
	}
	if !c.Sources.YouTube.Enabled && !c.Sources.Reddit.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}
