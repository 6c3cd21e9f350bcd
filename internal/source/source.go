// Package source provides intraday bars for one (symbol, date) at a time,
// either from a live HTTP provider or from a local archive of previously
// captured day files.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intralake/barfetch/internal/bars"
)

// BarSource fetches one trading day of intraday bars per call. Fetches are
// expensive and rate-gated upstream; implementations never retry internally.
type BarSource interface {
	// FetchDay returns every bar the provider has for the symbol on the
	// given date, in ascending time order. Bar times are UTC.
	FetchDay(ctx context.Context, symbol string, date time.Time) ([]bars.Bar, error)

	// EarliestAvailable reports the oldest date the provider holds data
	// for the symbol. Dates older than this are out of reach, not errors.
	EarliestAvailable(ctx context.Context, symbol string) (time.Time, error)

	Close() error
}

type Config struct {
	Mode       string // "http" or "archive"
	BaseURL    string
	Timeout    time.Duration
	ArchiveDir string
}

var ErrInvalidMode = errors.New("invalid source mode")

// New constructs a bar source based on the configured mode.
func New(cfg Config) (BarSource, error) {
	switch cfg.Mode {
	case "http":
		return newHTTPSource(cfg.BaseURL, cfg.Timeout), nil
	case "archive":
		return newArchiveSource(cfg.ArchiveDir), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
}

// TransientError marks a fetch failure worth retrying: timeouts, transport
// faults, provider 5xx. Anything not wrapped in it is treated as permanent
// for the current attempt cycle.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
