// Package symbols loads the ticker universe: the ordered list of symbols a
// run processes.
package symbols

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads symbols from a tickers CSV file, one symbol per row in the
// first column. A header row whose first cell is "symbol" or "ticker" is
// skipped. Order is preserved; duplicates are dropped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tickers file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []string
	seen := make(map[string]bool)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tickers file line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}

		sym := Normalize(row[0])
		if sym == "" {
			continue
		}
		if line == 1 && (sym == "SYMBOL" || sym == "TICKER") {
			continue
		}
		if err := Validate(sym); err != nil {
			return nil, fmt.Errorf("tickers file line %d: %w", line, err)
		}
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("tickers file %s holds no symbols", path)
	}
	return out, nil
}

// Normalize upper-cases and trims a raw ticker string.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate rejects symbols that cannot name a ledger directory or a storage
// key. Dots and dashes appear in real tickers (BRK.B, BF-B); slashes and
// blanks do not.
func Validate(sym string) error {
	if sym == "" {
		return fmt.Errorf("empty symbol")
	}
	if len(sym) > 12 {
		return fmt.Errorf("symbol %q too long", sym)
	}
	for _, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return fmt.Errorf("symbol %q has invalid character %q", sym, r)
		}
	}
	return nil
}
