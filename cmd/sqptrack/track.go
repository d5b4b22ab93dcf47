package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/importer"
	"sqptrack/internal/logging"
	"sqptrack/internal/products"
	"sqptrack/internal/sqp"
	"sqptrack/internal/store"
	"sqptrack/internal/tracker"
)

var (
	trackCSV      string
	trackExcel    string
	trackFolder   string
	trackWeek     string
	trackWeekDate string
	trackASIN     string
	trackDryRun   bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record one week of SQP data",
	Long: `Imports a weekly SQP export and appends it to the tracking cycle.
The first import locks the top-N keyword set and starts the cycle;
every later import must be strictly after the last recorded week.`,
	Run: runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackCSV, "csv", "", "Path to a weekly SQP CSV export")
	trackCmd.Flags().StringVar(&trackExcel, "excel", "", "Path to a weekly SQP Excel export")
	trackCmd.Flags().StringVar(&trackFolder, "folder", "", "Import every export in a folder, in week order")
	trackCmd.Flags().StringVar(&trackWeek, "week", "", "Reporting week as an ISO label (2025-W14)")
	trackCmd.Flags().StringVar(&trackWeekDate, "week-date", "", "Reporting week as any date inside it (2025-04-02)")
	trackCmd.Flags().StringVar(&trackASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	trackCmd.Flags().BoolVar(&trackDryRun, "dry-run", false, "Show what would happen without writing")
	rootCmd.AddCommand(trackCmd)
}

// BatchWeek is one appended week within a folder import
type BatchWeek struct {
	Week       sqp.Week `json:"week"`
	Seq        int      `json:"seq"`
	MaxWeeks   int      `json:"maxWeeks"`
	AlertCount int      `json:"alertCount"`
}

// TrackBatchResponse summarizes a folder import
type TrackBatchResponse struct {
	ASIN  string             `json:"asin"`
	Weeks []BatchWeek        `json:"weeks"`
	Final *tracker.AlertView `json:"final,omitempty"`
}

func runTrack(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, trackASIN)
	if err != nil {
		exitWithError(err)
	}

	var resp interface{}
	if trackFolder != "" {
		if trackCSV != "" || trackExcel != "" || trackWeek != "" || trackWeekDate != "" {
			exitWithError(sqperrors.NewSqpError(
				sqperrors.Validation,
				"--folder imports derive each week from the filename; do not combine it with --csv, --excel, --week, or --week-date",
				nil, nil,
			))
		}
		if trackDryRun {
			exitWithError(sqperrors.NewSqpError(
				sqperrors.Validation,
				"--dry-run previews a single import; it cannot be combined with --folder",
				nil, nil,
			))
		}
		resp, err = runFolderImport(eng, asin, trackFolder, logger)
		if err != nil {
			exitWithError(err)
		}
	} else {
		result, readErr := readImport(trackCSV, trackExcel, logger)
		if readErr != nil {
			exitWithError(readErr)
		}
		week, weekErr := weekFromFlags(trackWeek, trackWeekDate, result.Week)
		if weekErr != nil {
			exitWithError(weekErr)
		}
		meta := store.AppendMeta{Source: result.Source, Fingerprint: result.Fingerprint}

		if trackDryRun {
			resp, err = eng.tracker.PreviewUpdate(asin, week, result.Records)
		} else {
			resp, err = eng.tracker.RunWeeklyUpdate(asin, week, result.Records, meta)
		}
		if err != nil {
			exitWithError(err)
		}
	}

	output, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	duration := time.Since(start).Milliseconds()
	if outputFormat == "human" {
		fmt.Printf("\n(Import took %dms)\n", duration)
	}
}

// runFolderImport appends every export in the folder, oldest week
// first. ReadFolder already sorted the results and rejected files
// without a derivable week.
func runFolderImport(eng *engine, asin, folder string, logger *logging.Logger) (*TrackBatchResponse, error) {
	results, err := importer.ReadFolder(folder, logger)
	if err != nil {
		return nil, err
	}

	resp := &TrackBatchResponse{ASIN: asin}
	for _, result := range results {
		meta := store.AppendMeta{Source: result.Source, Fingerprint: result.Fingerprint}
		view, err := eng.tracker.RunWeeklyUpdate(asin, result.Week, result.Records, meta)
		if err != nil {
			return nil, err
		}
		resp.Weeks = append(resp.Weeks, BatchWeek{
			Week:       view.Week,
			Seq:        view.Seq,
			MaxWeeks:   view.MaxWeeks,
			AlertCount: len(view.Alerts()),
		})
		resp.Final = view
	}
	return resp, nil
}
