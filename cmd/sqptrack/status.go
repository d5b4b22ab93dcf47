package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/products"
)

var (
	statusASIN string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active tracking cycle",
	Long:  "Display the active watchlist, its locked keyword set, and every recorded week",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, statusASIN)
	if err != nil {
		exitWithError(err)
	}

	resp, err := eng.tracker.Status(asin)
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
		fmt.Printf("\n(Query took %dms)\n", duration)
	}
}
