// Package ledger implements the per-symbol status ledger: an append-only CSV
// file recording the outcome of every (symbol, date) fetch attempt. The
// ledger is the system's only resume state; a run that crashes mid-symbol
// loses nothing but the date it was working on.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrCorrupt marks a ledger file whose contents violate the schema. A corrupt
// ledger halts processing for its symbol; silently reinterpreting it would
// risk duplicate fetches or skipped dates.
var ErrCorrupt = errors.New("ledger corrupt")

const fileName = "bar_status.csv"

// Store reads and appends per-symbol ledgers under a root directory, one
// subdirectory per symbol.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, symbol, fileName)
}

// Load reads a symbol's full ledger in append order. A missing file is an
// empty ledger, not an error.
func (s *Store) Load(symbol string) ([]Record, error) {
	f, err := os.Open(s.path(symbol))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger for %s: %w", symbol, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", ErrCorrupt, symbol, err)
	}
	if len(head) == 0 || head[0] != "date" {
		return nil, fmt.Errorf("%w: %s: unexpected header %q", ErrCorrupt, symbol, strings.Join(head, ","))
	}

	var recs []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %v", ErrCorrupt, symbol, line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %v", ErrCorrupt, symbol, line, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Append durably appends one record to a symbol's ledger, creating the file
// (with header) on first write. The file is synced before returning so a
// crash immediately after cannot lose the outcome.
func (s *Store) Append(symbol string, rec Record) error {
	if !knownStatus(rec.Status) {
		return fmt.Errorf("refusing to append unknown status %q for %s", rec.Status, symbol)
	}

	path := s.path(symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir for %s: %w", symbol, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for %s: %w", symbol, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger for %s: %w", symbol, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write ledger header for %s: %w", symbol, err)
		}
	}
	if err := cw.Write(rec.toRow()); err != nil {
		return fmt.Errorf("append ledger row for %s: %w", symbol, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush ledger for %s: %w", symbol, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger for %s: %w", symbol, err)
	}
	return nil
}

// LatestByDate projects the append-only log down to the most recent record
// per date. Later rows shadow earlier ones; this is the view every resume
// and skip decision reads.
func (s *Store) LatestByDate(symbol string) (map[string]Record, error) {
	recs, err := s.Load(symbol)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]Record, len(recs))
	for _, r := range recs {
		latest[r.DateKey()] = r
	}
	return latest, nil
}

// ConsecutiveFailures counts the unbroken run of latest-record ERROR dates
// starting from the most recent recorded date and walking backward. Any
// non-ERROR latest record ends the streak. This is the input to the
// symbol-level failure breaker.
func (s *Store) ConsecutiveFailures(symbol string) (int, error) {
	latest, err := s.LatestByDate(symbol)
	if err != nil {
		return 0, err
	}
	return CountConsecutiveFailures(latest), nil
}

// CountConsecutiveFailures applies the streak rule to an already-loaded
// latest-by-date projection.
func CountConsecutiveFailures(latest map[string]Record) int {
	keys := make([]string, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	streak := 0
	for _, k := range keys {
		if latest[k].Status != StatusError {
			break
		}
		streak++
	}
	return streak
}

// Summary aggregates a symbol's latest-by-date records for reporting.
type Summary struct {
	Symbol      string
	Total       int
	Completed   int // COMPLETE + EARLY_CLOSE
	Holidays    int
	Errors      int
	Pending     int
	SuccessRate float64 // completed / (completed + errors), percent
	OldestDate  string
	NewestDate  string
}

// Summarize computes the reporting summary for one symbol.
func (s *Store) Summarize(symbol string) (Summary, error) {
	latest, err := s.LatestByDate(symbol)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Symbol: symbol, Total: len(latest)}
	for k, r := range latest {
		switch r.Status {
		case StatusComplete, StatusEarlyClose:
			sum.Completed++
		case StatusHoliday:
			sum.Holidays++
		case StatusError:
			sum.Errors++
		case StatusPending:
			sum.Pending++
		}
		if sum.OldestDate == "" || k < sum.OldestDate {
			sum.OldestDate = k
		}
		if k > sum.NewestDate {
			sum.NewestDate = k
		}
	}
	if attempted := sum.Completed + sum.Errors; attempted > 0 {
		sum.SuccessRate = float64(sum.Completed) / float64(attempted) * 100
	}
	return sum, nil
}

// Symbols lists every symbol that has a ledger file under the root.
func (s *Store) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger root: %w", err)
	}

	var symbols []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), fileName)); err == nil {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
