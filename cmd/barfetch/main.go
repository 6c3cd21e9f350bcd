package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	GitSHA  = ""
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "barfetch",
		Short:         "Resumable intraday bar fetcher",
		Long:          "barfetch incrementally pulls one-minute bars from a rate-limited source,\none trading day per call, and records every outcome in a per-symbol ledger\nso interrupted runs resume exactly where they stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(newFetchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			if GitSHA != "" {
				fmt.Printf("barfetch %s (%s)\n", Version, GitSHA)
				return
			}
			fmt.Printf("barfetch %s\n", Version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
