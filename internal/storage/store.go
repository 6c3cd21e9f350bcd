// Package storage persists immutable parquet day files to a local directory
// or an object store, one file per (symbol, trading date).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DayRef identifies one symbol-day's storage location.
type DayRef struct {
	Symbol string
	Date   time.Time
}

// Path returns the storage key for the day's parquet file.
func (r DayRef) Path(prefix string) string {
	return fmt.Sprintf("%s%s/raw/%s.parquet", prefix, r.Symbol, r.Date.Format("2006-01-02"))
}

// ManifestPath returns the storage key for the day's manifest.
func (r DayRef) ManifestPath(prefix string) string {
	return fmt.Sprintf("%s%s/raw/%s.manifest.json", prefix, r.Symbol, r.Date.Format("2006-01-02"))
}

// Manifest describes one stored day file. It makes a day self-verifying:
// a reader can confirm the parquet payload without consulting the ledger.
type Manifest struct {
	Symbol        string    `json:"symbol"`
	Date          string    `json:"date"` // "2006-01-02"
	BarCount      int       `json:"bar_count"`
	Checksum      string    `json:"checksum"`
	ByteSize      int64     `json:"byte_size"`
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *Manifest) encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// BarStore abstracts writing day files to storage.
type BarStore interface {
	// WriteDay writes the parquet payload for a symbol-day.
	WriteDay(ctx context.Context, ref DayRef, data []byte) error

	// WriteManifest writes the day's manifest.
	WriteManifest(ctx context.Context, ref DayRef, manifest *Manifest) error

	// Exists checks whether a day file is already stored.
	Exists(ctx context.Context, ref DayRef) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the storage backend.
type Config struct {
	Backend string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalDir string

	// GCS
	GCSBucket string

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string
	S3Endpoint string
	S3Region   string

	// Common
	Prefix string // path prefix within bucket or local dir
}

// NewBarStore creates a storage backend based on configuration.
func NewBarStore(cfg Config) (BarStore, error) {
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs backend")
		}
		return NewGCSStore(cfg.GCSBucket, cfg.Prefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 backend")
		}
		return NewS3Store(cfg.S3Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
