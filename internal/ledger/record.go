package ledger

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the terminal outcome recorded for one (symbol, date) attempt.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusComplete   Status = "COMPLETE"
	StatusEarlyClose Status = "EARLY_CLOSE"
	StatusHoliday    Status = "HOLIDAY"
	StatusError      Status = "ERROR"
)

// knownStatus rejects values outside the schema; an unknown status in a
// stored ledger means the file is corrupt, not that a new status was added.
func knownStatus(s Status) bool {
	switch s {
	case StatusPending, StatusComplete, StatusEarlyClose, StatusHoliday, StatusError:
		return true
	}
	return false
}

// Satisfied reports whether this status means the date needs no further
// fetching.
func (s Status) Satisfied() bool {
	return s == StatusComplete || s == StatusEarlyClose || s == StatusHoliday
}

// Record is one row of a symbol's status ledger: a single attempt outcome
// for a single trading date. Rows are append-only; re-attempting a date in a
// later run appends a fresh row rather than rewriting history.
type Record struct {
	Date          time.Time
	Status        Status
	ExpectedBars  int
	ActualBars    int
	LastTimestamp time.Time // zero when no bars were accepted
	ErrorMessage  string    // set iff Status == ERROR
	RetryCount    int       // fetch attempts made in the recording run
	RunID         string
	RecordedAt    time.Time
}

// DateKey returns the canonical ledger key for the record's date.
func (r Record) DateKey() string {
	return r.Date.Format("2006-01-02")
}

// header is the CSV column layout. Order is load-bearing: existing ledgers
// must keep parsing across releases.
var header = []string{
	"date", "status", "expected_bars", "actual_bars",
	"last_timestamp", "error_message", "retry_count", "run_id", "recorded_at",
}

func (r Record) toRow() []string {
	lastTS := ""
	if !r.LastTimestamp.IsZero() {
		lastTS = r.LastTimestamp.UTC().Format(time.RFC3339)
	}
	recordedAt := r.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return []string{
		r.Date.Format("2006-01-02"),
		string(r.Status),
		strconv.Itoa(r.ExpectedBars),
		strconv.Itoa(r.ActualBars),
		lastTS,
		r.ErrorMessage,
		strconv.Itoa(r.RetryCount),
		r.RunID,
		recordedAt.UTC().Format(time.RFC3339),
	}
}

// parseRow converts a CSV row back into a Record, enforcing the schema
// invariants. Any violation is reported as corruption by the caller.
func parseRow(row []string) (Record, error) {
	if len(row) != len(header) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(header), len(row))
	}

	date, err := time.Parse("2006-01-02", row[0])
	if err != nil {
		return Record{}, fmt.Errorf("bad date %q: %w", row[0], err)
	}

	status := Status(row[1])
	if !knownStatus(status) {
		return Record{}, fmt.Errorf("unknown status %q", row[1])
	}

	expected, err := strconv.Atoi(row[2])
	if err != nil {
		return Record{}, fmt.Errorf("bad expected_bars %q: %w", row[2], err)
	}
	actual, err := strconv.Atoi(row[3])
	if err != nil {
		return Record{}, fmt.Errorf("bad actual_bars %q: %w", row[3], err)
	}
	if expected < 0 || actual < 0 {
		return Record{}, fmt.Errorf("negative bar count (expected=%d actual=%d)", expected, actual)
	}

	var lastTS time.Time
	if row[4] != "" {
		lastTS, err = time.Parse(time.RFC3339, row[4])
		if err != nil {
			return Record{}, fmt.Errorf("bad last_timestamp %q: %w", row[4], err)
		}
	}

	retries, err := strconv.Atoi(row[6])
	if err != nil || retries < 0 {
		return Record{}, fmt.Errorf("bad retry_count %q", row[6])
	}

	var recordedAt time.Time
	if row[8] != "" {
		recordedAt, err = time.Parse(time.RFC3339, row[8])
		if err != nil {
			return Record{}, fmt.Errorf("bad recorded_at %q: %w", row[8], err)
		}
	}

	return Record{
		Date:          date,
		Status:        status,
		ExpectedBars:  expected,
		ActualBars:    actual,
		LastTimestamp: lastTS,
		ErrorMessage:  row[5],
		RetryCount:    retries,
		RunID:         row[7],
		RecordedAt:    recordedAt,
	}, nil
}
