package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target != 1000 || cfg.MaxConcurrency != 8 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crowdecho.yaml")
	content := `
target: 5000
max_concurrency: 4
sources:
  youtube:
    enabled: true
    api_keys: "key-a,key-b"
  reddit:
    enabled: false
db_path: "/tmp/test-runs.db"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target != 5000 {
		t.Errorf("target = %d, want 5000", cfg.Target)
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("max_concurrency = %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.Sources.YouTube.APIKeys != "key-a,key-b" {
		t.Errorf("youtube api_keys = %q", cfg.Sources.YouTube.APIKeys)
	}
	if cfg.Sources.Reddit.Enabled {
		t.Error("reddit should be disabled")
	}
	// Unspecified fields keep their defaults.
	if cfg.PerQueryRetries != 1 || cfg.PauseSeconds != 2 {
		t.Errorf("unset fields lost defaults: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crowdecho.yaml")
	if err := os.WriteFile(path, []byte("target: 5000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CROWDECHO_TARGET", "9000")
	t.Setenv("CROWDECHO_TIMEOUT_MULTIPLIER", "1.5")
	t.Setenv("CROWDECHO_REDDIT_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target != 9000 {
		t.Errorf("target = %d, want env override 9000", cfg.Target)
	}
	if cfg.TimeoutMultiplier != 1.5 {
		t.Errorf("timeout multiplier = %v, want 1.5", cfg.TimeoutMultiplier)
	}
	if cfg.Sources.Reddit.Enabled {
		t.Error("reddit should be disabled via env")
	}
}

func TestLoadRejectsBadEnvValue(t *testing.T) {
	t.Setenv("CROWDECHO_TARGET", "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric target")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero target", mutate: func(c *Config) { c.Target = 0 }},
		{name: "zero retries", mutate: func(c *Config) { c.PerQueryRetries = 0 }},
		{name: "zero concurrency", mutate: func(c *Config) { c.MaxConcurrency = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.AttemptTimeoutSeconds = 0 }},
		{name: "negative pause", mutate: func(c *Config) { c.PauseSeconds = -1 }},
		{name: "all sources disabled", mutate: func(c *Config) {
			c.Sources.YouTube.Enabled = false
			c.Sources.Reddit.Enabled = false
		}},
		{name: "empty db path", mutate: func(c *Config) { c.DBPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
