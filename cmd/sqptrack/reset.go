package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/products"
	"sqptrack/internal/store"
)

var (
	resetCSV      string
	resetExcel    string
	resetWeek     string
	resetWeekDate string
	resetASIN     string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Archive the current cycle and start a new one",
	Long: `Archives the active tracking cycle and starts a fresh one from the
given import: the top-N keyword set is re-selected and the import
becomes week 1. The archived cycle stays readable via 'sqptrack archives'.`,
	Run: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetCSV, "csv", "", "Path to a weekly SQP CSV export")
	resetCmd.Flags().StringVar(&resetExcel, "excel", "", "Path to a weekly SQP Excel export")
	resetCmd.Flags().StringVar(&resetWeek, "week", "", "Reporting week as an ISO label (2025-W14)")
	resetCmd.Flags().StringVar(&resetWeekDate, "week-date", "", "Reporting week as any date inside it (2025-04-02)")
	resetCmd.Flags().StringVar(&resetASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, resetASIN)
	if err != nil {
		exitWithError(err)
	}

	result, err := readImport(resetCSV, resetExcel, logger)
	if err != nil {
		exitWithError(err)
	}
	week, err := weekFromFlags(resetWeek, resetWeekDate, result.Week)
	if err != nil {
		exitWithError(err)
	}

	meta := store.AppendMeta{Source: result.Source, Fingerprint: result.Fingerprint}
	resp, err := eng.tracker.RunReset(asin, week, result.Records, meta)
	if err != nil {
		exitWithError(err)
	}

	output, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	duration := time.Since(start).Milliseconds()
	if outputFormat == "human" {
		fmt.Printf("\n(Reset took %dms)\n", duration)
	}
}
