// Package watcher periodically reports fetch progress by reading the status
// ledgers. It is a pure observer: it never writes, and its cadence is
// independent of the orchestrator's loop.
package watcher

import (
	"context"
	"time"

	"github.com/intralake/barfetch/internal/ledger"
	"github.com/intralake/barfetch/internal/logging"
)

// ProgressFunc reports where the orchestrator currently is: the symbol in
// flight and how many of its candidate dates are done. Nil means the watcher
// reports ledger totals only.
type ProgressFunc func() (symbol string, done, total int)

type Watcher struct {
	led      *ledger.Store
	interval time.Duration
	progress ProgressFunc

	prev sample // previous tick's reading, for the ETA estimate
}

// sample is one tick's reading of the orchestrator's position.
type sample struct {
	symbol string
	done   int
	total  int
	at     time.Time
}

// estimateETA projects time remaining for the current symbol from the pace
// between two ticks. It reports false until two comparable readings exist:
// same symbol, forward movement, elapsed wall time.
func estimateETA(prev, cur sample) (time.Duration, bool) {
	if prev.symbol != cur.symbol || cur.done <= prev.done {
		return 0, false
	}
	elapsed := cur.at.Sub(prev.at)
	if elapsed <= 0 {
		return 0, false
	}
	perDate := elapsed / time.Duration(cur.done-prev.done)
	return perDate * time.Duration(cur.total-cur.done), true
}

func New(led *ledger.Store, interval time.Duration, progress ProgressFunc) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{led: led, interval: interval, progress: progress}
}

// Run reports progress on every tick until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *Watcher) report() {
	log := logging.Component("watcher")

	syms, err := w.led.Symbols()
	if err != nil {
		log.Warn("progress scan failed", "error", err)
		return
	}

	var total, completed, holidays, errCount int
	for _, sym := range syms {
		sum, err := w.led.Summarize(sym)
		if err != nil {
			// The orchestrator may be mid-append; skip this tick's
			// reading for the symbol rather than alarm on it.
			continue
		}
		total += sum.Total
		completed += sum.Completed
		holidays += sum.Holidays
		errCount += sum.Errors
	}

	args := []any{
		"symbols", len(syms),
		"dates_recorded", total,
		"completed", completed,
		"holidays", holidays,
		"errors", errCount,
	}
	if w.progress != nil {
		sym, done, symTotal := w.progress()
		if sym != "" {
			args = append(args, "current_symbol", sym, "symbol_dates_done", done, "symbol_dates_total", symTotal)
			cur := sample{symbol: sym, done: done, total: symTotal, at: time.Now()}
			if eta, ok := estimateETA(w.prev, cur); ok {
				args = append(args, "eta", eta.Round(time.Second).String())
			}
			w.prev = cur
		}
	}
	log.Info("progress", args...)
}
