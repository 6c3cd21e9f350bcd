package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Rate.MinInterval != 10*time.Second {
		t.Errorf("Rate.MinInterval = %s, want 10s", cfg.Rate.MinInterval)
	}
	if cfg.Rate.WindowCalls != 60 || cfg.Rate.Window != 10*time.Minute {
		t.Errorf("window budget = %d per %s, want 60 per 10m", cfg.Rate.WindowCalls, cfg.Rate.Window)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Wait != 10*time.Second {
		t.Errorf("retry = %d attempts / %s wait, want 3 / 10s", cfg.Retry.MaxAttempts, cfg.Retry.Wait)
	}
	if cfg.Breaker.MaxConsecutiveFailures != 10 {
		t.Errorf("breaker ceiling = %d, want 10", cfg.Breaker.MaxConsecutiveFailures)
	}
	if cfg.Fetch.Direction != "newest_first" {
		t.Errorf("direction = %s, want newest_first", cfg.Fetch.Direction)
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  mode: http
  base_url: https://bars.example.com
rate:
  min_interval: 5s
retry:
  max_attempts: 5
universe:
  symbols: [AAPL, MSFT]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.BaseURL != "https://bars.example.com" {
		t.Errorf("BaseURL = %s", cfg.Source.BaseURL)
	}
	if cfg.Rate.MinInterval != 5*time.Second {
		t.Errorf("MinInterval = %s, want 5s (file value)", cfg.Rate.MinInterval)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	// Untouched sections keep their defaults.
	if cfg.Breaker.MaxConsecutiveFailures != 10 {
		t.Errorf("breaker ceiling = %d, want default 10", cfg.Breaker.MaxConsecutiveFailures)
	}
	if len(cfg.Universe.Symbols) != 2 {
		t.Errorf("symbols = %v", cfg.Universe.Symbols)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  mode: http
  base_url: https://bars.example.com
`)
	t.Setenv("BARFETCH_SOURCE_URL", "https://backup.example.com")
	t.Setenv("BARFETCH_MIN_INTERVAL", "30s")
	t.Setenv("BARFETCH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.BaseURL != "https://backup.example.com" {
		t.Errorf("BaseURL = %s, env should win over file", cfg.Source.BaseURL)
	}
	if cfg.Rate.MinInterval != 30*time.Second {
		t.Errorf("MinInterval = %s, want 30s", cfg.Rate.MinInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http mode without base url", func(c *Config) { c.Source.Mode = "http"; c.Source.BaseURL = "" }},
		{"archive mode without dir", func(c *Config) { c.Source.Mode = "archive"; c.Source.ArchiveDir = "" }},
		{"unknown source mode", func(c *Config) { c.Source.Mode = "ftp" }},
		{"unknown direction", func(c *Config) { c.Fetch.Direction = "sideways" }},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "floppy" }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"backoff below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }},
		{"zero breaker ceiling", func(c *Config) { c.Breaker.MaxConsecutiveFailures = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Source.BaseURL = "https://bars.example.com"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
