// Package metrics provides Prometheus metrics for the fetch orchestrator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so tests and dry runs skip registration entirely.
type Metrics struct {
	// Date outcomes
	DaysProcessed *prometheus.CounterVec // by terminal status
	DaysSkipped   *prometheus.CounterVec // already satisfied on resume
	DaysFailed    *prometheus.CounterVec

	// Symbols
	SymbolsAbandoned prometheus.Counter
	BreakerStreak    *prometheus.GaugeVec

	// Fetch loop
	FetchAttempts prometheus.Counter
	FetchDuration prometheus.Histogram
	RateGateWait  prometheus.Histogram
	BarsPerDay    prometheus.Histogram
	DayFileBytes  prometheus.Histogram

	// Errors by collaborator
	SourceErrors  prometheus.Counter
	StorageErrors prometheus.Counter
	LedgerErrors  prometheus.Counter
	CatalogErrors prometheus.Counter
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // e.g. ":9090"
}

// Init registers all metrics on the default registry. Call once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "barfetch"
	}

	return &Metrics{
		DaysProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "days_processed_total",
				Help:      "Trading dates with a terminal record written this run",
			},
			[]string{"status"},
		),
		DaysSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "days_skipped_total",
				Help:      "Trading dates skipped because the ledger already satisfies them",
			},
			[]string{"symbol"},
		),
		DaysFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "days_failed_total",
				Help:      "Trading dates recorded as ERROR",
			},
			[]string{"symbol"},
		),
		SymbolsAbandoned: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "symbols_abandoned_total",
				Help:      "Symbols abandoned by the consecutive-failure breaker",
			},
		),
		BreakerStreak: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_streak",
				Help:      "Current consecutive-failure streak per symbol",
			},
			[]string{"symbol"},
		),
		FetchAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "External fetch calls made, including retries",
			},
		),
		FetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent in a single external fetch call",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
		),
		RateGateWait: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_gate_wait_seconds",
				Help:      "Time spent waiting for a rate gate slot",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
			},
		),
		BarsPerDay: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bars_per_day",
				Help:      "Accepted bar count per stored trading day",
				Buckets:   []float64{0, 210, 360, 390},
			},
		),
		DayFileBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "day_file_bytes",
				Help:      "Size of stored parquet day files in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
			},
		),
		SourceErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total fetch failures from the bar source",
			},
		),
		StorageErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total day-file write failures",
			},
		),
		LedgerErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_errors_total",
				Help:      "Total ledger read/append failures",
			},
		),
		CatalogErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_errors_total",
				Help:      "Total catalog mirror failures (non-fatal)",
			},
		),
	}
}

// StartServer starts an HTTP server for Prometheus scraping. Blocks until
// the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// Nil-safe recording helpers; the orchestrator calls these unconditionally.

func (m *Metrics) IncDayProcessed(status string) {
	if m != nil {
		m.DaysProcessed.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncDaySkipped(symbol string) {
	if m != nil {
		m.DaysSkipped.WithLabelValues(symbol).Inc()
	}
}

func (m *Metrics) IncDayFailed(symbol string) {
	if m != nil {
		m.DaysFailed.WithLabelValues(symbol).Inc()
	}
}

func (m *Metrics) IncSymbolAbandoned() {
	if m != nil {
		m.SymbolsAbandoned.Inc()
	}
}

func (m *Metrics) SetBreakerStreak(symbol string, streak int) {
	if m != nil {
		m.BreakerStreak.WithLabelValues(symbol).Set(float64(streak))
	}
}

func (m *Metrics) IncFetchAttempt() {
	if m != nil {
		m.FetchAttempts.Inc()
	}
}

func (m *Metrics) ObserveFetchDuration(seconds float64) {
	if m != nil {
		m.FetchDuration.Observe(seconds)
	}
}

func (m *Metrics) ObserveRateGateWait(seconds float64) {
	if m != nil {
		m.RateGateWait.Observe(seconds)
	}
}

func (m *Metrics) ObserveDayFile(barCount int, byteSize int) {
	if m != nil {
		m.BarsPerDay.Observe(float64(barCount))
		m.DayFileBytes.Observe(float64(byteSize))
	}
}

func (m *Metrics) IncSourceError() {
	if m != nil {
		m.SourceErrors.Inc()
	}
}

func (m *Metrics) IncStorageError() {
	if m != nil {
		m.StorageErrors.Inc()
	}
}

func (m *Metrics) IncLedgerError() {
	if m != nil {
		m.LedgerErrors.Inc()
	}
}

func (m *Metrics) IncCatalogError() {
	if m != nil {
		m.CatalogErrors.Inc()
	}
}
