package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/products"
	"sqptrack/internal/sqp"
)

var (
	historyKeyword string
	historyASIN    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show one keyword's week-by-week history",
	Long:  "Display every recorded week for one locked keyword, oldest first, absent weeks included",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyKeyword, "keyword", "k", "", "Locked keyword to show (required)")
	historyCmd.Flags().StringVar(&historyASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	historyCmd.MarkFlagRequired("keyword")
	rootCmd.AddCommand(historyCmd)
}

// HistoryWeek is one recorded week for a keyword
type HistoryWeek struct {
	Week          sqp.Week `json:"week"`
	Rank          int      `json:"rank,omitempty"`
	Volume        int      `json:"volume,omitempty"`
	PurchaseShare float64  `json:"purchaseShare,omitempty"`
	Missing       bool     `json:"missing,omitempty"`
}

// HistoryResponse is one keyword's full series within the active cycle
type HistoryResponse struct {
	ASIN        string        `json:"asin"`
	Keyword     string        `json:"keyword"`
	InitialRank int           `json:"initialRank"`
	CycleStart  sqp.Week      `json:"cycleStart"`
	Weeks       []HistoryWeek `json:"weeks"`
}

func runHistory(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, historyASIN)
	if err != nil {
		exitWithError(err)
	}

	wl, records, err := eng.tracker.History(asin, historyKeyword)
	if err != nil {
		exitWithError(err)
	}

	resp := &HistoryResponse{
		ASIN:       wl.ASIN,
		Keyword:    sqp.NormalizeKeyword(historyKeyword),
		CycleStart: wl.CycleStartWeek,
	}
	locked, err := eng.tracker.DB().LockedKeywords(wl.ID)
	if err != nil {
		exitWithError(err)
	}
	for _, lk := range locked {
		if lk.Keyword == resp.Keyword {
			resp.InitialRank = lk.InitialRank
			break
		}
	}
	for _, rec := range records {
		resp.Weeks = append(resp.Weeks, HistoryWeek{
			Week:          rec.Week,
			Rank:          rec.Rank,
			Volume:        rec.Volume,
			PurchaseShare: rec.PurchaseShare,
			Missing:       rec.Missing,
		})
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
