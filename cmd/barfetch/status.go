package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/intralake/barfetch/internal/config"
	"github.com/intralake/barfetch/internal/ledger"
	"github.com/intralake/barfetch/internal/symbols"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [symbol]",
		Short: "Summarize ledger progress per symbol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only string
			if len(args) == 1 {
				only = args[0]
			}
			return runStatus(only)
		},
	}
}

func runStatus(only string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	led := ledger.NewStore(cfg.Ledger.Dir)
	syms, err := led.Symbols()
	if err != nil {
		return err
	}
	if only != "" {
		only = symbols.Normalize(only)
		var found bool
		for _, s := range syms {
			if s == only {
				syms, found = []string{s}, true
				break
			}
		}
		if !found {
			return fmt.Errorf("no ledger for %s under %s", only, cfg.Ledger.Dir)
		}
	}
	if len(syms) == 0 {
		fmt.Println("no ledgers found under", cfg.Ledger.Dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tDATES\tCOMPLETED\tHOLIDAYS\tERRORS\tSUCCESS\tOLDEST\tNEWEST")

	var corrupt []string
	for _, sym := range syms {
		sum, err := led.Summarize(sym)
		if err != nil {
			corrupt = append(corrupt, fmt.Sprintf("%s: %v", sym, err))
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\t%s\t%s\n",
			sum.Symbol, sum.Total, sum.Completed, sum.Holidays, sum.Errors,
			sum.SuccessRate, sum.OldestDate, sum.NewestDate)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(corrupt) > 0 {
		fmt.Fprintln(os.Stderr)
		for _, line := range corrupt {
			fmt.Fprintln(os.Stderr, "ledger error:", line)
		}
		return fmt.Errorf("%d symbol ledgers could not be read", len(corrupt))
	}
	return nil
}
