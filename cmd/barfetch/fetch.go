package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intralake/barfetch/internal/breaker"
	"github.com/intralake/barfetch/internal/calendar"
	"github.com/intralake/barfetch/internal/catalog"
	"github.com/intralake/barfetch/internal/config"
	"github.com/intralake/barfetch/internal/fetcher"
	"github.com/intralake/barfetch/internal/ledger"
	"github.com/intralake/barfetch/internal/logging"
	"github.com/intralake/barfetch/internal/metrics"
	"github.com/intralake/barfetch/internal/rategate"
	"github.com/intralake/barfetch/internal/source"
	"github.com/intralake/barfetch/internal/storage"
	"github.com/intralake/barfetch/internal/symbols"
	"github.com/intralake/barfetch/internal/watcher"
)

func newFetchCmd() *cobra.Command {
	var (
		dryRun      bool
		symbolsFlag []string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch missing trading days for the configured universe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(dryRun, symbolsFlag)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "enumerate dates without fetching or writing")
	cmd.Flags().StringSliceVar(&symbolsFlag, "symbols", nil, "process only these symbols (overrides config)")
	return cmd
}

func runFetch(dryRun bool, symbolsFlag []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config(cfg.Logging))

	runID := logging.NewRunID()
	log := logging.Component("main")
	log.Info("starting fetch run", "run_id", runID, "version", Version, "dry_run", dryRun)

	universe, err := resolveUniverse(cfg, symbolsFlag)
	if err != nil {
		return err
	}

	cal, err := loadCalendar(cfg)
	if err != nil {
		return err
	}

	src, err := source.New(source.Config{
		Mode:       cfg.Source.Mode,
		BaseURL:    cfg.Source.BaseURL,
		Timeout:    cfg.Source.Timeout,
		ArchiveDir: cfg.Source.ArchiveDir,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	store, err := storage.NewBarStore(storage.Config{
		Backend:    cfg.Storage.Backend,
		LocalDir:   cfg.Storage.LocalDir,
		GCSBucket:  cfg.Storage.GCSBucket,
		S3Bucket:   cfg.Storage.S3Bucket,
		S3Endpoint: cfg.Storage.S3Endpoint,
		S3Region:   cfg.Storage.S3Region,
		Prefix:     cfg.Storage.Prefix,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	gate, err := rategate.New(cfg.Rate.MinInterval, cfg.Rate.WindowCalls, cfg.Rate.Window)
	if err != nil {
		return err
	}
	brk, err := breaker.New(cfg.Breaker.MaxConsecutiveFailures)
	if err != nil {
		return err
	}

	cat, err := catalog.NewWriter(catalog.Config{
		PostgresDSN: cfg.Catalog.PostgresDSN,
		Namespace:   cfg.Catalog.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer cat.Close()

	var met *metrics.Metrics
	if cfg.Metrics.Enabled {
		met = metrics.Init("barfetch")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	led := ledger.NewStore(cfg.Ledger.Dir)

	orch, err := fetcher.New(fetcher.Config{
		Direction:         cfg.Fetch.Direction,
		HorizonYears:      cfg.Fetch.HorizonYears,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		RetryWait:         cfg.Retry.Wait,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		StoragePrefix:     cfg.Storage.Prefix,
		DryRun:            dryRun,
	}, fetcher.Deps{
		Calendar: cal,
		Ledger:   led,
		Source:   src,
		Store:    store,
		Gate:     gate,
		Breaker:  brk,
		Catalog:  cat,
		Metrics:  met,
		Logger:   log,
		RunID:    runID,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal asks the orchestrator to stop at the next date boundary;
	// a second one aborts the in-flight fetch outright.
	go func() {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Warn("shutdown requested, finishing current date", "signal", sig.String())
		orch.RequestShutdown()
		sig = <-ch
		log.Warn("second signal, aborting", "signal", sig.String())
		cancel()
	}()

	go watcher.New(led, cfg.Watcher.Interval, func() (string, int, int) {
		p := orch.Progress()
		return p.Symbol, p.DatesDone, p.DatesTotal
	}).Run(ctx)

	sum, err := orch.Run(ctx, universe)
	printSummary(sum)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func resolveUniverse(cfg config.Config, flag []string) ([]string, error) {
	raw := flag
	if len(raw) == 0 {
		raw = cfg.Universe.Symbols
	}
	if len(raw) > 0 {
		out := make([]string, 0, len(raw))
		for _, s := range raw {
			sym := symbols.Normalize(s)
			if err := symbols.Validate(sym); err != nil {
				return nil, err
			}
			out = append(out, sym)
		}
		return out, nil
	}
	return symbols.Load(cfg.Universe.TickersFile)
}

func loadCalendar(cfg config.Config) (*calendar.Calendar, error) {
	if cfg.Calendar.DataFile != "" {
		return calendar.Load(cfg.Calendar.DataFile)
	}
	return calendar.New(cfg.Calendar.Exchange), nil
}

func printSummary(sum fetcher.Summary) {
	completed, skipped, errCount, abandoned := sum.Totals()
	slog.Info("run summary",
		"run_id", sum.RunID,
		"completed", completed,
		"skipped", skipped,
		"errors", errCount,
		"abandoned_symbols", abandoned,
		"cancelled", sum.Cancelled)

	for _, r := range sum.Symbols {
		if r.Err != nil {
			fmt.Printf("%-8s FAILED: %v\n", r.Symbol, r.Err)
			continue
		}
		state := "ok"
		if r.Abandoned {
			state = "abandoned"
		}
		fmt.Printf("%-8s %-9s completed=%-4d skipped=%-4d errors=%-3d success=%.1f%%\n",
			r.Symbol, state, r.Completed, r.Skipped, r.Errors, r.SuccessRate())
	}
}
