// Package config loads the barfetch configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the fetcher.
type Config struct {
	Universe UniverseConfig `yaml:"universe"`
	Calendar CalendarConfig `yaml:"calendar"`
	Source   SourceConfig   `yaml:"source"`
	Rate     RateConfig     `yaml:"rate"`
	Retry    RetryConfig    `yaml:"retry"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// UniverseConfig selects which symbols a run processes.
type UniverseConfig struct {
	TickersFile string   `yaml:"tickers_file"` // CSV of symbols, one per row
	Symbols     []string `yaml:"symbols"`      // explicit list, overrides file
}

// CalendarConfig locates the trading-calendar data.
type CalendarConfig struct {
	DataFile string `yaml:"data_file"` // YAML holiday/early-close table; empty = built-in
	Exchange string `yaml:"exchange"`
}

// SourceConfig configures the external bar source.
type SourceConfig struct {
	Mode       string        `yaml:"mode"` // "http" | "archive"
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	ArchiveDir string        `yaml:"archive_dir"` // for mode=archive
}

// RateConfig bounds the global request rate against the source.
type RateConfig struct {
	MinInterval time.Duration `yaml:"min_interval"` // between any two calls
	WindowCalls int           `yaml:"window_calls"` // rolling ceiling
	Window      time.Duration `yaml:"window"`
}

// RetryConfig bounds per-date fetch attempts.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	Wait              time.Duration `yaml:"wait"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"` // 1.0 = fixed wait
}

// BreakerConfig configures the consecutive-failure circuit breaker.
type BreakerConfig struct {
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

// FetchConfig shapes date enumeration per symbol.
type FetchConfig struct {
	Direction    string `yaml:"direction"`     // "newest_first" | "oldest_first"
	HorizonYears int    `yaml:"horizon_years"` // 0 = bounded only by earliest available
}

// StorageConfig configures the raw day-file store.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // "local" | "gcs" | "s3"
	LocalDir   string `yaml:"local_dir"`
	GCSBucket  string `yaml:"gcs_bucket"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`
	Prefix     string `yaml:"prefix"`
}

// LedgerConfig locates the per-symbol status ledgers.
type LedgerConfig struct {
	Dir string `yaml:"dir"`
}

// CatalogConfig configures the optional Postgres outcome mirror.
type CatalogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"` // empty = disabled
	Namespace   string `yaml:"namespace"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// WatcherConfig configures the read-only progress observer.
type WatcherConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when no file overrides it. The rate
// and retry defaults mirror the source's published limits: one request per
// 10 seconds, at most 60 requests in any rolling 10 minutes.
func Default() Config {
	return Config{
		Universe: UniverseConfig{
			TickersFile: "config/tickers.csv",
		},
		Calendar: CalendarConfig{
			Exchange: "NYSE",
		},
		Source: SourceConfig{
			Mode:    "http",
			Timeout: 30 * time.Second,
		},
		Rate: RateConfig{
			MinInterval: 10 * time.Second,
			WindowCalls: 60,
			Window:      10 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			Wait:              10 * time.Second,
			BackoffMultiplier: 1.0,
		},
		Breaker: BreakerConfig{
			MaxConsecutiveFailures: 10,
		},
		Fetch: FetchConfig{
			Direction: "newest_first",
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "./data",
		},
		Ledger: LedgerConfig{
			Dir: "./data",
		},
		Catalog: CatalogConfig{
			Namespace: "default",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Watcher: WatcherConfig{
			Interval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads the config file at path, layered over Default. An empty path
// loads defaults plus environment overrides only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides layers BARFETCH_* environment variables on top of the
// file values, for the handful of settings that differ per deployment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BARFETCH_SOURCE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("BARFETCH_DATA_DIR"); v != "" {
		c.Storage.LocalDir = v
		c.Ledger.Dir = v
	}
	if v := os.Getenv("BARFETCH_CATALOG_DSN"); v != "" {
		c.Catalog.PostgresDSN = v
	}
	if v := os.Getenv("BARFETCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BARFETCH_MIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Rate.MinInterval = d
		}
	}
	if v := os.Getenv("BARFETCH_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
}

// Validate rejects configurations the fetcher cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Mode {
	case "http":
		if c.Source.BaseURL == "" {
			return fmt.Errorf("config: source.base_url required for http mode")
		}
	case "archive":
		if c.Source.ArchiveDir == "" {
			return fmt.Errorf("config: source.archive_dir required for archive mode")
		}
	default:
		return fmt.Errorf("config: unknown source.mode %q", c.Source.Mode)
	}

	switch c.Fetch.Direction {
	case "newest_first", "oldest_first":
	default:
		return fmt.Errorf("config: unknown fetch.direction %q", c.Fetch.Direction)
	}

	if c.Rate.MinInterval <= 0 {
		return fmt.Errorf("config: rate.min_interval must be positive")
	}
	if c.Rate.WindowCalls <= 0 || c.Rate.Window <= 0 {
		return fmt.Errorf("config: rate window settings must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		return fmt.Errorf("config: retry.backoff_multiplier must be >= 1.0")
	}
	if c.Breaker.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("config: breaker.max_consecutive_failures must be at least 1")
	}
	if c.Ledger.Dir == "" {
		return fmt.Errorf("config: ledger.dir required")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("config: storage.local_dir required for local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config: storage.gcs_bucket required for gcs backend")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("config: storage.s3_bucket required for s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}

	return nil
}
