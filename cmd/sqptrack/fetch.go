package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/importer"
	"sqptrack/internal/logging"
	"sqptrack/internal/products"
	"sqptrack/internal/spapi"
	"sqptrack/internal/sqp"
	"sqptrack/internal/store"
)

var (
	fetchASIN     string
	fetchWeekDate string
	fetchTrack    bool
	fetchTestAPI  bool
	fetchList     bool
	fetchCheck    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a weekly SQP report from the Selling Partner API",
	Long: `Requests a weekly Search Query Performance report from Amazon,
waits for it to process, and downloads it. By default the previous
complete reporting week (Sunday through Saturday) is fetched.`,
	Run: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	fetchCmd.Flags().StringVar(&fetchWeekDate, "week-date", "", "Any date inside the reporting week (2025-04-02)")
	fetchCmd.Flags().BoolVar(&fetchTrack, "track", false, "Append the fetched week to the tracking cycle")
	fetchCmd.Flags().BoolVar(&fetchTestAPI, "test-api", false, "Verify credentials against the Reports API and exit")
	fetchCmd.Flags().BoolVar(&fetchList, "list", false, "List recent SQP reports and exit")
	fetchCmd.Flags().StringVar(&fetchCheck, "check", "", "Check one report's processing status and exit")
	rootCmd.AddCommand(fetchCmd)
}

// FetchResponse is a fetched report that was parsed but not tracked
type FetchResponse struct {
	ASIN     string       `json:"asin"`
	Week     sqp.Week     `json:"week"`
	Keywords int          `json:"keywords"`
	Skipped  int          `json:"skipped,omitempty"`
	Top      []sqp.Record `json:"top"`
}

// ReportListResponse lists recent SP-API reports
type ReportListResponse struct {
	Reports []spapi.ReportStatus `json:"reports"`
}

// ReportCheckResponse is one report's processing state
type ReportCheckResponse struct {
	ReportID         string `json:"reportId"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId,omitempty"`
	CreatedTime      string `json:"createdTime,omitempty"`
}

// previousWeekStart returns the Sunday starting the last complete
// Sunday-through-Saturday reporting week before now.
func previousWeekStart(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	lastSunday := day.AddDate(0, 0, -int(day.Weekday()))
	return lastSunday.AddDate(0, 0, -7)
}

func runFetch(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	ctx := newContext()

	client, err := newSpapiClient(root, logger)
	if err != nil {
		exitWithError(err)
	}

	if fetchTestAPI {
		if testErr := client.TestConnection(ctx); testErr != nil {
			fmt.Printf("✗ Connection failed: %v\n", testErr)
			os.Exit(1)
		}
		fmt.Println("✓ Selling Partner API connection works")
		return
	}

	var resp interface{}
	switch {
	case fetchList:
		reports, listErr := client.ListReports(ctx, 10)
		if listErr != nil {
			exitWithError(listErr)
		}
		resp = &ReportListResponse{Reports: reports}

	case fetchCheck != "":
		status, checkErr := client.GetReport(ctx, fetchCheck)
		if checkErr != nil {
			exitWithError(checkErr)
		}
		resp = &ReportCheckResponse{
			ReportID:         status.ReportID,
			ProcessingStatus: status.ProcessingStatus,
			ReportDocumentID: status.ReportDocumentID,
			CreatedTime:      status.CreatedTime,
		}

	default:
		asin, resolveErr := products.Resolve(root, fetchASIN)
		if resolveErr != nil {
			exitWithError(resolveErr)
		}

		weekStart := previousWeekStart(time.Now().UTC())
		if fetchWeekDate != "" {
			day, parseErr := time.Parse("2006-01-02", fetchWeekDate)
			if parseErr != nil {
				exitWithError(sqperrors.NewSqpError(
					sqperrors.Validation,
					fmt.Sprintf("cannot parse %q as a date (want YYYY-MM-DD)", fetchWeekDate),
					parseErr, nil,
				))
			}
			// Snap to the Sunday the reporting week begins on
			weekStart = day.AddDate(0, 0, -int(day.Weekday()))
		}

		data, fetchErr := client.FetchWeeklyReport(ctx, asin, weekStart)
		if fetchErr != nil {
			exitWithError(fetchErr)
		}
		result, parseErr := importer.ParseReportDocument(data, asin, logger)
		if parseErr != nil {
			exitWithError(parseErr)
		}

		if fetchTrack {
			eng := mustGetEngine(root, logger)
			meta := store.AppendMeta{Source: result.Source, Fingerprint: result.Fingerprint}
			view, trackErr := eng.tracker.RunWeeklyUpdate(asin, result.Week, result.Records, meta)
			if trackErr != nil {
				exitWithError(trackErr)
			}
			resp = view
		} else {
			resp = buildFetchResponse(asin, result)
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
		fmt.Printf("\n(Fetch took %dms)\n", duration)
	}
}

// newSpapiClient loads the subsystem config and sealed credentials
func newSpapiClient(root string, logger *logging.Logger) (*spapi.Client, error) {
	cfg, err := spapi.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	creds, err := spapi.LoadCredentials(root)
	if err != nil {
		return nil, err
	}
	tokens := creds.TokenSource(newContext())
	return spapi.NewClient(cfg, nil, tokens, logger), nil
}

func buildFetchResponse(asin string, result *importer.Result) *FetchResponse {
	top := make([]sqp.Record, len(result.Records))
	copy(top, result.Records)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Rank < top[j].Rank })
	if len(top) > 10 {
		top = top[:10]
	}
	return &FetchResponse{
		ASIN:     asin,
		Week:     result.Week,
		Keywords: len(result.Records),
		Skipped:  result.Skipped,
		Top:      top,
	}
}
