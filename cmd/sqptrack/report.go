package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/analyze"
	"sqptrack/internal/config"
	"sqptrack/internal/products"
)

var (
	reportCSV      string
	reportExcel    string
	reportWeek     string
	reportWeekDate string
	reportASIN     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyze one week's SQP export",
	Long: `Runs the single-week analyzers over an export without touching the
tracking cycle: keyword categories, root-cause diagnostics, listing
placement suggestions, and price checks.`,
	Run: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "Path to a weekly SQP CSV export")
	reportCmd.Flags().StringVar(&reportExcel, "excel", "", "Path to a weekly SQP Excel export")
	reportCmd.Flags().StringVar(&reportWeek, "week", "", "Reporting week as an ISO label (2025-W14)")
	reportCmd.Flags().StringVar(&reportWeekDate, "week-date", "", "Reporting week as any date inside it (2025-04-02)")
	reportCmd.Flags().StringVar(&reportASIN, "asin", "", "Product ASIN label for the report")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()

	// The analyzers never touch the store, so a report works in any
	// directory; the ASIN is only a label here.
	asin := ""
	if reportASIN != "" {
		resolved, err := products.Resolve(root, reportASIN)
		if err != nil {
			exitWithError(err)
		}
		asin = resolved
	} else if resolved, err := products.Resolve(root, ""); err == nil {
		asin = resolved
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	result, err := readImport(reportCSV, reportExcel, logger)
	if err != nil {
		exitWithError(err)
	}
	week, err := weekFromFlags(reportWeek, reportWeekDate, result.Week)
	if err != nil {
		exitWithError(err)
	}

	resp := analyze.Run(asin, week, result.Records, cfg.Analyze)

	output, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	duration := time.Since(start).Milliseconds()
	if outputFormat == "human" {
		fmt.Printf("\n(Analysis took %dms)\n", duration)
	}
}
