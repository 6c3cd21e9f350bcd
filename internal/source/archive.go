package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/intralake/barfetch/internal/bars"
)

// archiveSource replays previously captured day files from local disk,
// laid out as <dir>/<SYMBOL>/<date>.csv.zst. Used for backfills and tests;
// no rate gating is needed but the orchestrator applies it anyway so both
// modes exercise the same path.
type archiveSource struct {
	dir string
}

func newArchiveSource(dir string) *archiveSource {
	return &archiveSource{dir: dir}
}

const archiveExt = ".csv.zst"

func (s *archiveSource) dayPath(symbol string, date time.Time) string {
	return filepath.Join(s.dir, symbol, date.Format("2006-01-02")+archiveExt)
}

func (s *archiveSource) FetchDay(ctx context.Context, symbol string, date time.Time) ([]bars.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.dayPath(symbol, date))
	if os.IsNotExist(err) {
		// A missing day file means the archive holds nothing for the
		// date. The validator decides what zero bars means.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open archive day: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open zstd reader: %w", err)
	}
	defer zr.Close()

	bs, err := bars.ReadCSV(zr)
	if err != nil {
		return nil, fmt.Errorf("read archive day %s/%s: %w", symbol, date.Format("2006-01-02"), err)
	}
	return bs, nil
}

// EarliestAvailable scans the symbol's archive directory for the oldest day
// file. A symbol with no directory has no available history.
func (s *archiveSource) EarliestAvailable(ctx context.Context, symbol string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, symbol))
	if os.IsNotExist(err) {
		return time.Time{}, fmt.Errorf("no archive data for %s", symbol)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read archive dir for %s: %w", symbol, err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, archiveExt) {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, archiveExt))
	}
	if len(dates) == 0 {
		return time.Time{}, fmt.Errorf("no archive data for %s", symbol)
	}
	sort.Strings(dates)

	first, err := time.Parse("2006-01-02", dates[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad archive file name %q: %w", dates[0]+archiveExt, err)
	}
	return first, nil
}

func (s *archiveSource) Close() error { return nil }
