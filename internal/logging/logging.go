// Package logging provides structured logging using slog.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds logging configuration.
type Config struct {
	Format string // "json" | "text"
	Level  string // "debug" | "info" | "warn" | "error"
}

// Setup initializes the global slog logger based on configuration.
func Setup(cfg Config) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRunID creates a unique identifier for one fetch run. It is attached to
// ledger records and log lines so a record can be traced back to the run
// that produced it.
func NewRunID() string {
	return uuid.NewString()
}

// Component returns a logger with a component name.
func Component(name string) *slog.Logger {
	return slog.With("component", name)
}

// SymbolLogger creates a logger with per-symbol fetch context fields.
func SymbolLogger(runID, symbol string) *slog.Logger {
	return slog.With(
		"run_id", runID,
		"symbol", symbol,
	)
}

// DateLogger extends a symbol logger with the trading date being processed.
func DateLogger(log *slog.Logger, date time.Time) *slog.Logger {
	return log.With("date", date.Format("2006-01-02"))
}
