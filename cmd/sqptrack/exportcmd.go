package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sqptrack/internal/export"
	"sqptrack/internal/products"
)

var (
	exportFormat string
	exportOut    string
	exportASIN   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the tracking cycle as a shareable document",
	Long: `Renders the active cycle - locked keywords, every recorded week,
alerts, and archived cycles - as JSON, YAML, or a CSV purchase-share grid.`,
	Run: runExport,
}

func init() {
	// Shadows the global --format: exports are documents, not console output
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format (json, yaml, csv)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().StringVar(&exportASIN, "asin", "", "Product ASIN (defaults to the single active product)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger("human")

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	asin, err := products.Resolve(root, exportASIN)
	if err != nil {
		exitWithError(err)
	}

	snapshot, err := export.NewExporter(eng.tracker, logger).Snapshot(asin)
	if err != nil {
		exitWithError(err)
	}
	data, err := snapshot.Render(exportFormat)
	if err != nil {
		exitWithError(err)
	}

	if exportOut != "" {
		if writeErr := os.WriteFile(exportOut, data, 0644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Error writing export: %v\n", writeErr)
			os.Exit(1)
		}
		duration := time.Since(start).Milliseconds()
		fmt.Printf("✓ Exported %s to %s (%d bytes, %dms)\n", asin, exportOut, len(data), duration)
		return
	}

	os.Stdout.Write(data)
}
