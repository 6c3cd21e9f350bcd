package fetcher

import "time"

// SymbolResult reports how one symbol fared in a run. A symbol abandoned by
// the failure breaker is distinct from one that merely finished with
// scattered errors: abandoned symbols have unattempted dates left for a
// future run.
type SymbolResult struct {
	Symbol    string
	Completed int // terminal success records written this run
	Skipped   int // dates already satisfied by the ledger
	Errors    int // ERROR records written this run
	Abandoned bool
	Err       error // symbol-level failure (corrupt ledger, probe failure)
}

// SuccessRate is completed / (completed + errors) as a percentage. Skipped
// dates don't count either way.
func (r SymbolResult) SuccessRate() float64 {
	attempted := r.Completed + r.Errors
	if attempted == 0 {
		return 100
	}
	return float64(r.Completed) / float64(attempted) * 100
}

// Summary aggregates a whole run.
type Summary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Symbols   []SymbolResult
	Cancelled bool // a shutdown request stopped the run early
}

func (s Summary) Totals() (completed, skipped, errors, abandoned int) {
	for _, r := range s.Symbols {
		completed += r.Completed
		skipped += r.Skipped
		errors += r.Errors
		if r.Abandoned {
			abandoned++
		}
	}
	return
}
