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
	archivesASIN string
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "List archived tracking cycles",
	Long:  "Display every archived cycle, newest first, optionally filtered by ASIN",
	Run:   runArchives,
}

func init() {
	archivesCmd.Flags().StringVar(&archivesASIN, "asin", "", "Filter archives by product ASIN")
	rootCmd.AddCommand(archivesCmd)
}

// ArchivesResponse lists archived cycles
type ArchivesResponse struct {
	ASIN     string              `json:"asin,omitempty"`
	Archives []store.ArchiveInfo `json:"archives"`
}

func runArchives(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(outputFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	filter := products.NormalizeASIN(archivesASIN)
	archives, err := eng.tracker.DB().Archives(filter)
	if err != nil {
		exitWithError(err)
	}

	resp := &ArchivesResponse{ASIN: filter, Archives: archives}

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
