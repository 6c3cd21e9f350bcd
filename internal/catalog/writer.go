// Package catalog mirrors fetch outcomes and day-file lineage into an
// external PostgreSQL catalog for querying across the whole universe. The
// per-symbol CSV ledger stays authoritative; the catalog is a convenience
// mirror and its failures never fail a fetch.
package catalog

import (
	"context"
	"time"
)

type Config struct {
	PostgresDSN string
	Namespace   string
}

// OutcomeRecord mirrors one ledger row.
type OutcomeRecord struct {
	Symbol       string
	Date         string // "2006-01-02"
	Status       string
	ExpectedBars int
	ActualBars   int
	RetryCount   int
	ErrorMessage string
	RunID        string
	RecordedAt   time.Time
}

// DayFileRecord describes one stored day file.
type DayFileRecord struct {
	Symbol        string
	Date          string // "2006-01-02"
	URI           string
	Checksum      string
	BarCount      int
	ByteSize      int64
	SchemaVersion string
	RunID         string
}

type Writer interface {
	RecordOutcome(ctx context.Context, rec OutcomeRecord) error
	RecordDayFile(ctx context.Context, rec DayFileRecord) error
	Close()
}

// NewWriter returns a PostgreSQL-backed writer when a DSN is configured and
// a no-op writer otherwise, so callers never branch on catalog presence.
func NewWriter(cfg Config) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return noopWriter{}, nil
	}
	return newPostgresWriter(cfg)
}

type noopWriter struct{}

func (noopWriter) RecordOutcome(_ context.Context, _ OutcomeRecord) error { return nil }
func (noopWriter) RecordDayFile(_ context.Context, _ DayFileRecord) error { return nil }
func (noopWriter) Close()                                                 {}
