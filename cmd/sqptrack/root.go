package main

import (
	"sqptrack/internal/version"

	"github.com/spf13/cobra"
)

var (
	// outputFormat is the global --format flag value
	outputFormat string
	// verboseFlag enables debug logging
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "sqptrack",
	Short: "sqptrack - Amazon SQP keyword tracking",
	Long: `sqptrack ingests weekly Amazon Search Query Performance exports (CSV, Excel,
or SP-API reports), locks the top keywords for an ASIN into a 12-week watchlist,
and flags week-over-week volume drops, purchase-share drops, and vanished keywords.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sqptrack version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "human",
		"Output format (human, json)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable debug logging")
}
