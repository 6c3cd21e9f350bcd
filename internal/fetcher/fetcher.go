// Package fetcher drives the resumable fetch loop: for each symbol in the
// universe, enumerate candidate dates, fetch and validate one trading day at
// a time behind the global rate gate, persist accepted days, and record every
// terminal outcome in the status ledger. The ledger is the sole resume state;
// a rerun skips everything already satisfied.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intralake/barfetch/internal/bars"
	"github.com/intralake/barfetch/internal/breaker"
	"github.com/intralake/barfetch/internal/calendar"
	"github.com/intralake/barfetch/internal/catalog"
	"github.com/intralake/barfetch/internal/ledger"
	"github.com/intralake/barfetch/internal/logging"
	"github.com/intralake/barfetch/internal/metrics"
	"github.com/intralake/barfetch/internal/source"
	"github.com/intralake/barfetch/internal/storage"
)

// SlotGate grants one external fetch slot per call.
type SlotGate interface {
	Wait(ctx context.Context) error
}

// Config shapes date enumeration and the per-date retry policy.
type Config struct {
	Direction         string // "newest_first" | "oldest_first"
	HorizonYears      int    // 0 = bounded only by source availability
	MaxAttempts       int
	RetryWait         time.Duration
	BackoffMultiplier float64 // 1.0 = fixed wait
	StoragePrefix     string
	DryRun            bool
}

// Deps are the orchestrator's collaborators. Source, Store, and Gate are
// interfaces so tests can substitute fakes; the rest are concrete.
type Deps struct {
	Calendar *calendar.Calendar
	Ledger   *ledger.Store
	Source   source.BarSource
	Store    storage.BarStore
	Gate     SlotGate
	Breaker  *breaker.Breaker
	Catalog  catalog.Writer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	RunID    string

	// Now and Sleep default to the real clock; tests override them.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

type Orchestrator struct {
	cfg   Config
	cal   *calendar.Calendar
	led   *ledger.Store
	src   source.BarSource
	store storage.BarStore
	gate  SlotGate
	brk   *breaker.Breaker
	cat   catalog.Writer
	met   *metrics.Metrics
	log   *slog.Logger
	runID string
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	shutdown atomic.Bool

	progMu sync.Mutex
	prog   Progress
}

// Progress is a point-in-time snapshot of where the run is within the
// current symbol. DatesTotal counts candidate dates, satisfied ones included.
type Progress struct {
	Symbol     string
	DatesDone  int
	DatesTotal int
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.BackoffMultiplier < 1.0 {
		return nil, fmt.Errorf("backoff multiplier must be >= 1.0, got %g", cfg.BackoffMultiplier)
	}
	switch cfg.Direction {
	case "newest_first", "oldest_first":
	default:
		return nil, fmt.Errorf("unknown direction %q", cfg.Direction)
	}

	o := &Orchestrator{
		cfg:   cfg,
		cal:   deps.Calendar,
		led:   deps.Ledger,
		src:   deps.Source,
		store: deps.Store,
		gate:  deps.Gate,
		brk:   deps.Breaker,
		cat:   deps.Catalog,
		met:   deps.Metrics,
		log:   deps.Logger,
		runID: deps.RunID,
		now:   deps.Now,
		sleep: deps.Sleep,
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.cat == nil {
		o.cat, _ = catalog.NewWriter(catalog.Config{})
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.sleep == nil {
		o.sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}
	}
	return o, nil
}

// RequestShutdown asks the run to stop at the next date boundary. The date
// currently in flight always completes and its record is durably written
// first, so the ledger never holds a half-applied date.
func (o *Orchestrator) RequestShutdown() {
	o.shutdown.Store(true)
}

// Run processes every symbol strictly in order: one symbol is fully
// processed or abandoned before the next begins, because the rate gate is a
// single global resource and interleaving would not finish any sooner.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (Summary, error) {
	sum := Summary{RunID: o.runID, Started: o.now()}

	for _, symbol := range symbols {
		if o.shutdown.Load() || ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
		res := o.ProcessSymbol(ctx, symbol)
		sum.Symbols = append(sum.Symbols, res)
		if res.Err != nil {
			logging.SymbolLogger(o.runID, symbol).Error("symbol failed", "error", res.Err)
		}
	}

	if o.shutdown.Load() {
		sum.Cancelled = true
	}
	sum.Finished = o.now()
	o.logSummary(sum)
	return sum, ctx.Err()
}

// Progress reports the run's position for observers. Safe to call from
// another goroutine.
func (o *Orchestrator) Progress() Progress {
	o.progMu.Lock()
	defer o.progMu.Unlock()
	return o.prog
}

func (o *Orchestrator) setProgress(symbol string, done, total int) {
	o.progMu.Lock()
	o.prog = Progress{Symbol: symbol, DatesDone: done, DatesTotal: total}
	o.progMu.Unlock()
}

// ProcessSymbol runs the full fetch loop for one symbol and returns its
// outcome tally. Run calls it for every symbol in order; it is exported so a
// host application can drive a single symbol directly.
func (o *Orchestrator) ProcessSymbol(ctx context.Context, symbol string) SymbolResult {
	res := SymbolResult{Symbol: symbol}
	log := logging.SymbolLogger(o.runID, symbol)

	latest, err := o.led.LatestByDate(symbol)
	if err != nil {
		// A corrupt ledger halts this symbol; guessing at its contents
		// could duplicate fetches or skip unfetched dates.
		o.met.IncLedgerError()
		res.Err = err
		return res
	}

	o.brk.Seed(symbol, ledger.CountConsecutiveFailures(latest))
	o.met.SetBreakerStreak(symbol, o.brk.Streak(symbol))
	if o.brk.Tripped(symbol) {
		log.Warn("skipping symbol, failure streak at ceiling",
			"streak", o.brk.Streak(symbol), "ceiling", o.brk.Ceiling())
		res.Abandoned = true
		o.met.IncSymbolAbandoned()
		return res
	}

	earliest, err := o.src.EarliestAvailable(ctx, symbol)
	if err != nil {
		o.met.IncSourceError()
		res.Err = fmt.Errorf("availability probe: %w", err)
		return res
	}

	dates := o.enumerateDates(earliest)
	o.setProgress(symbol, 0, len(dates))
	log.Info("processing symbol",
		"dates", len(dates), "earliest_available", earliest.Format("2006-01-02"),
		"direction", o.cfg.Direction)

	for i, date := range dates {
		// Cancellation is honored only here, between dates.
		if o.shutdown.Load() || ctx.Err() != nil {
			return res
		}
		o.setProgress(symbol, i, len(dates))

		key := date.Format("2006-01-02")
		if rec, ok := latest[key]; ok && rec.Status.Satisfied() {
			res.Skipped++
			o.met.IncDaySkipped(symbol)
			continue
		}

		if o.cfg.DryRun {
			log.Info("would fetch", "date", key)
			continue
		}

		switch outcome := o.processDate(ctx, symbol, date, log); outcome {
		case dateSucceeded:
			res.Completed++
		case dateFailed:
			res.Errors++
			if o.brk.Tripped(symbol) {
				log.Warn("abandoning symbol, failure streak reached ceiling",
					"streak", o.brk.Streak(symbol), "ceiling", o.brk.Ceiling())
				res.Abandoned = true
				o.met.IncSymbolAbandoned()
				return res
			}
		case dateAborted:
			// Context died mid-date; no record was written for it.
			return res
		}
	}
	o.setProgress(symbol, len(dates), len(dates))
	return res
}

// enumerateDates lists candidate dates for a symbol, bounded by the
// configured horizon, the source's earliest available date, and calendar
// coverage. Weekends are never candidates; weekday holidays are, so they
// get HOLIDAY records without spending a fetch.
func (o *Orchestrator) enumerateDates(earliest time.Time) []time.Time {
	end := midnight(o.now().AddDate(0, 0, -1)) // newest full day
	if cov := o.cal.CoverageEnd(); end.After(cov) {
		end = cov
	}

	start := o.cal.CoverageStart()
	if o.cfg.HorizonYears > 0 {
		if h := end.AddDate(-o.cfg.HorizonYears, 0, 0); h.After(start) {
			start = h
		}
	}
	if e := midnight(earliest); e.After(start) {
		start = e
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	if o.cfg.Direction == "newest_first" {
		for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
			dates[i], dates[j] = dates[j], dates[i]
		}
	}
	return dates
}

type dateOutcome int

const (
	dateSucceeded dateOutcome = iota
	dateFailed
	dateAborted
)

// processDate runs the fetch→validate→persist→record cycle for one date.
// Exactly one ledger record is appended unless the context dies first.
func (o *Orchestrator) processDate(ctx context.Context, symbol string, date time.Time, symLog *slog.Logger) dateOutcome {
	log := logging.DateLogger(symLog, date)

	day, err := o.cal.Classify(date)
	if err != nil {
		// Calendar gap: fatal for this date only, never retried.
		return o.recordError(ctx, symbol, date, 0, 0, 0, err.Error(), log)
	}

	if !day.IsTradingDay {
		// Known holiday: record directly, no fetch slot spent.
		return o.recordSuccess(ctx, symbol, day, nil, 0, log)
	}

	var (
		lastReason  string
		lastPartial int
		wait        = o.cfg.RetryWait
	)
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && wait > 0 {
			if err := o.sleep(ctx, wait); err != nil {
				return dateAborted
			}
			wait = time.Duration(float64(wait) * o.cfg.BackoffMultiplier)
		}

		bs, err := o.fetchOnce(ctx, symbol, date)
		if err != nil {
			if ctx.Err() != nil {
				return dateAborted
			}
			o.met.IncSourceError()
			lastReason, lastPartial = err.Error(), 0
			log.Warn("fetch failed", "attempt", attempt, "error", err)
			if !source.IsTransient(err) {
				return o.recordError(ctx, symbol, date, day.ExpectedBars, 0, attempt, lastReason, log)
			}
			continue
		}

		outcome := Validate(bs, day)
		if !outcome.Accepted {
			lastReason, lastPartial = outcome.Reason, outcome.Count
			log.Warn("validation rejected", "attempt", attempt,
				"expected", day.ExpectedBars, "actual", outcome.Count, "reason", outcome.Reason)
			continue
		}

		if err := o.persistDay(ctx, symbol, day, bs); err != nil {
			o.met.IncStorageError()
			lastReason, lastPartial = err.Error(), outcome.Count
			log.Warn("persist failed", "attempt", attempt, "error", err)
			continue
		}

		return o.recordSuccess(ctx, symbol, day, bs, attempt, log)
	}

	return o.recordError(ctx, symbol, date, day.ExpectedBars, lastPartial, o.cfg.MaxAttempts, lastReason, log)
}

func (o *Orchestrator) fetchOnce(ctx context.Context, symbol string, date time.Time) ([]bars.Bar, error) {
	gateStart := o.now()
	if err := o.gate.Wait(ctx); err != nil {
		return nil, err
	}
	o.met.ObserveRateGateWait(o.now().Sub(gateStart).Seconds())

	o.met.IncFetchAttempt()
	fetchStart := o.now()
	bs, err := o.src.FetchDay(ctx, symbol, date)
	o.met.ObserveFetchDuration(o.now().Sub(fetchStart).Seconds())
	return bs, err
}

// persistDay encodes and stores the accepted day plus its manifest.
func (o *Orchestrator) persistDay(ctx context.Context, symbol string, day calendar.Day, bs []bars.Bar) error {
	data, err := bars.EncodeDay(symbol, day.Date, o.runID, bs)
	if err != nil {
		return fmt.Errorf("encode day: %w", err)
	}

	ref := storage.DayRef{Symbol: symbol, Date: day.Date}
	if err := o.store.WriteDay(ctx, ref, data); err != nil {
		return fmt.Errorf("write day: %w", err)
	}

	manifest := &storage.Manifest{
		Symbol:        symbol,
		Date:          day.Date.Format("2006-01-02"),
		BarCount:      len(bs),
		Checksum:      bars.Checksum(data),
		ByteSize:      int64(len(data)),
		SchemaVersion: bars.SchemaVersion,
		RunID:         o.runID,
		CreatedAt:     o.now(),
	}
	if err := o.store.WriteManifest(ctx, ref, manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	o.met.ObserveDayFile(len(bs), len(data))

	o.mirrorDayFile(ctx, catalog.DayFileRecord{
		Symbol:        symbol,
		Date:          manifest.Date,
		URI:           o.store.URI(ref.Path(o.cfg.StoragePrefix)),
		Checksum:      manifest.Checksum,
		BarCount:      manifest.BarCount,
		ByteSize:      manifest.ByteSize,
		SchemaVersion: manifest.SchemaVersion,
		RunID:         o.runID,
	})
	return nil
}

func (o *Orchestrator) recordSuccess(ctx context.Context, symbol string, day calendar.Day, bs []bars.Bar, attempts int, log *slog.Logger) dateOutcome {
	status := ledger.StatusComplete
	switch day.Type {
	case calendar.DayHoliday:
		status = ledger.StatusHoliday
	case calendar.DayEarlyCloseLong, calendar.DayEarlyCloseShort:
		status = ledger.StatusEarlyClose
	}

	rec := ledger.Record{
		Date:          day.Date,
		Status:        status,
		ExpectedBars:  day.ExpectedBars,
		ActualBars:    len(bs),
		LastTimestamp: bars.LastTimestamp(bs),
		RetryCount:    attempts,
		RunID:         o.runID,
		RecordedAt:    o.now(),
	}
	if err := o.led.Append(symbol, rec); err != nil {
		o.met.IncLedgerError()
		log.Error("ledger append failed", "error", err)
		return dateFailed
	}

	o.brk.RecordSuccess(symbol)
	o.met.SetBreakerStreak(symbol, 0)
	o.met.IncDayProcessed(string(status))
	o.mirrorOutcome(ctx, symbol, rec)

	log.Info("date recorded", "status", string(status), "bars", len(bs), "attempts", attempts)
	return dateSucceeded
}

func (o *Orchestrator) recordError(ctx context.Context, symbol string, date time.Time, expected, actual, attempts int, reason string, log *slog.Logger) dateOutcome {
	rec := ledger.Record{
		Date:         midnight(date),
		Status:       ledger.StatusError,
		ExpectedBars: expected,
		ActualBars:   actual,
		ErrorMessage: reason,
		RetryCount:   attempts,
		RunID:        o.runID,
		RecordedAt:   o.now(),
	}
	if err := o.led.Append(symbol, rec); err != nil {
		// The ERROR row never landed, so the streak stays put: it must
		// always match what a fresh fold over the ledger would compute.
		o.met.IncLedgerError()
		log.Error("ledger append failed", "error", err)
		return dateFailed
	}

	streak := o.brk.RecordError(symbol)
	o.met.SetBreakerStreak(symbol, streak)
	o.met.IncDayProcessed(string(ledger.StatusError))
	o.met.IncDayFailed(symbol)
	o.mirrorOutcome(ctx, symbol, rec)

	log.Error("date exhausted", "expected", expected, "actual", actual,
		"attempts", attempts, "reason", reason, "streak", streak)
	return dateFailed
}

// mirrorOutcome copies a ledger row into the catalog. Catalog failures are
// logged and counted but never fail the date: the CSV ledger is the truth.
func (o *Orchestrator) mirrorOutcome(ctx context.Context, symbol string, rec ledger.Record) {
	err := o.cat.RecordOutcome(ctx, catalog.OutcomeRecord{
		Symbol:       symbol,
		Date:         rec.DateKey(),
		Status:       string(rec.Status),
		ExpectedBars: rec.ExpectedBars,
		ActualBars:   rec.ActualBars,
		RetryCount:   rec.RetryCount,
		ErrorMessage: rec.ErrorMessage,
		RunID:        rec.RunID,
		RecordedAt:   rec.RecordedAt,
	})
	if err != nil {
		o.met.IncCatalogError()
		o.log.Warn("catalog mirror failed", "symbol", symbol, "date", rec.DateKey(), "error", err)
	}
}

func (o *Orchestrator) mirrorDayFile(ctx context.Context, rec catalog.DayFileRecord) {
	if err := o.cat.RecordDayFile(ctx, rec); err != nil {
		o.met.IncCatalogError()
		o.log.Warn("catalog mirror failed", "symbol", rec.Symbol, "date", rec.Date, "error", err)
	}
}

func (o *Orchestrator) logSummary(sum Summary) {
	completed, skipped, errCount, abandoned := sum.Totals()
	o.log.Info("run finished",
		"run_id", sum.RunID,
		"symbols", len(sum.Symbols),
		"completed", completed,
		"skipped", skipped,
		"errors", errCount,
		"abandoned", abandoned,
		"cancelled", sum.Cancelled,
		"elapsed", sum.Finished.Sub(sum.Started).Round(time.Second).String())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
