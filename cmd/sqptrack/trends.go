package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/analyze"
	"sqptrack/internal/products"
	"sqptrack/internal/sqp"
)

var (
	trendsASIN string
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show purchase-share trends across the cycle",
	Long:  "Display each locked keyword's purchase-share series and its direction over the recorded weeks",
	Run:   runTrends,
}

func init() {
	trendsCmd.Flags().StringVar(&trendsASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	rootCmd.AddCommand(trendsCmd)
}

// TrendsResponse is the per-keyword trend set for the active cycle
type TrendsResponse struct {
	ASIN       string                 `json:"asin"`
	CycleStart sqp.Week               `json:"cycleStart"`
	LastWeek   sqp.Week               `json:"lastWeek"`
	WeekCount  int                    `json:"weekCount"`
	Trends     []analyze.KeywordTrend `json:"trends"`
}

func runTrends(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, trendsASIN)
	if err != nil {
		exitWithError(err)
	}

	status, err := eng.tracker.Status(asin)
	if err != nil {
		exitWithError(err)
	}

	resp := &TrendsResponse{
		ASIN:       status.Watchlist.ASIN,
		CycleStart: status.Watchlist.CycleStartWeek,
		LastWeek:   status.Watchlist.LastWeek,
		WeekCount:  status.Watchlist.WeekCount,
	}
	for _, kw := range status.Locked {
		history, herr := eng.tracker.DB().History(status.Watchlist.ID, kw.Keyword)
		if herr != nil {
			exitWithError(herr)
		}
		resp.Trends = append(resp.Trends, analyze.TrendOf(kw.Keyword, history, eng.cfg.Analyze.TrendDeadbandPts))
	}

	output, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	duration := time.Since(start).Milliseconds()
	if outputFormat == "human" {
		fmt.Printf("\n(Query took %dms)\n", duration)
	}
}
