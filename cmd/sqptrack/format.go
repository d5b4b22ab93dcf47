package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sqptrack/internal/analyze"
	"sqptrack/internal/delta"
	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/tracker"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *tracker.AlertView:
		return formatAlertViewHuman(v)
	case *tracker.Preview:
		return formatPreviewHuman(v)
	case *tracker.ResetResult:
		return formatResetHuman(v)
	case *tracker.Status:
		return formatStatusHuman(v)
	case *HistoryResponse:
		return formatHistoryHuman(v)
	case *analyze.Report:
		return formatReportHuman(v)
	case *TrendsResponse:
		return formatTrendsHuman(v)
	case *ArchivesResponse:
		return formatArchivesHuman(v)
	case *ProductsResponse:
		return formatProductsHuman(v)
	case *TrackBatchResponse:
		return formatBatchHuman(v)
	case *FetchResponse:
		return formatFetchHuman(v)
	case *ReportListResponse:
		return formatReportListHuman(v)
	case *ReportCheckResponse:
		return formatReportCheckHuman(v)
	default:
		// For unknown types, fall back to JSON
		data, err := formatJSON(resp)
		if err != nil {
			return "", err
		}
		return "Human format not available, showing JSON:\n" + data, nil
	}
}

// tagIcon maps an alert tag to its status icon
func tagIcon(tag delta.Tag) string {
	switch tag {
	case delta.None:
		return "✓"
	case delta.Missing:
		return "✗"
	default:
		return "⚠"
	}
}

// formatAlertViewHuman renders the outcome of one weekly update
func formatAlertViewHuman(resp *tracker.AlertView) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Weekly Update: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Week %s recorded (week %d/%d)\n", resp.Week, resp.Seq, resp.MaxWeeks))
	if resp.Initialized {
		b.WriteString(fmt.Sprintf("New cycle started: locked top %d keywords\n", len(resp.Rows)))
	}
	if resp.DuplicateRows > 0 {
		b.WriteString(fmt.Sprintf("Duplicate rows dropped: %d\n", resp.DuplicateRows))
	}
	if resp.IgnoredRows > 0 {
		b.WriteString(fmt.Sprintf("Rows outside the locked set: %d\n", resp.IgnoredRows))
	}

	b.WriteString("\nKeywords:\n")
	b.WriteString(fmt.Sprintf("    %-26s %5s %8s %7s %9s %9s\n",
		"KEYWORD", "RANK", "VOLUME", "SHARE", "VOL CHG", "SHR CHG"))
	for _, row := range resp.Rows {
		rank := "-"
		volume := "-"
		share := "-"
		if !row.Missing {
			rank = strconv.Itoa(row.Rank)
			volume = strconv.Itoa(row.Volume)
			share = fmt.Sprintf("%.1f%%", row.PurchaseShare)
		}
		line := fmt.Sprintf("  %s %-26s %5s %8s %7s %9s %9s",
			tagIcon(row.Tag), row.Keyword, rank, volume, share,
			row.VolumeDelta.Pct(), row.ShareDelta.Pts())
		if row.Tag != delta.None {
			line += "  " + string(row.Tag)
		}
		b.WriteString(line + "\n")
	}

	alerts := resp.Alerts()
	if len(alerts) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠ %d alert(s) this week\n", len(alerts)))
	} else {
		b.WriteString("\n✓ No alerts this week\n")
	}

	if resp.CycleExceeded {
		b.WriteString(fmt.Sprintf("\n⚠ Cycle exceeded (week %d of %d). Run 'sqptrack reset --csv <new-export>' to re-select keywords.\n",
			resp.Seq, resp.MaxWeeks))
	} else if resp.CycleComplete {
		b.WriteString(fmt.Sprintf("\n⚠ Cycle complete (%d/%d weeks). Run 'sqptrack reset --csv <new-export>' to start a new cycle.\n",
			resp.Seq, resp.MaxWeeks))
	}

	return b.String(), nil
}

// formatPreviewHuman renders a dry run
func formatPreviewHuman(resp *tracker.Preview) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Dry Run: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if resp.FirstImport {
		b.WriteString(fmt.Sprintf("First import: week %s would start a new cycle and lock %d keywords:\n",
			resp.Week, len(resp.WouldLock)))
		for i, kw := range resp.WouldLock {
			b.WriteString(fmt.Sprintf("  %2d. %s (rank %d)\n", i+1, kw.Keyword, kw.InitialRank))
		}
	} else if resp.OutOfOrder {
		b.WriteString(fmt.Sprintf("✗ Week %s is not after the last recorded week %s; the append would fail.\n",
			resp.Week, resp.LastWeek))
	} else {
		b.WriteString(fmt.Sprintf("Week %s would be appended as week %d.\n", resp.Week, resp.NextSeq))
		if len(resp.Missing) > 0 {
			b.WriteString(fmt.Sprintf("Missing locked keywords (%d): %s\n",
				len(resp.Missing), strings.Join(resp.Missing, ", ")))
		}
	}

	if resp.DuplicateRows > 0 {
		b.WriteString(fmt.Sprintf("Duplicate rows dropped: %d\n", resp.DuplicateRows))
	}
	if resp.IgnoredRows > 0 {
		b.WriteString(fmt.Sprintf("Rows outside the locked set: %d\n", resp.IgnoredRows))
	}

	b.WriteString("\nNo changes were written.\n")

	return b.String(), nil
}

// formatResetHuman renders an archive-and-restart
func formatResetHuman(resp *tracker.ResetResult) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Cycle Reset: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("✓ Archived previous cycle (%d weeks) as %s\n", resp.OldWeekCount, resp.ArchiveID))
	if resp.ArchiveLabel != "" {
		b.WriteString(fmt.Sprintf("  Label: %s\n", resp.ArchiveLabel))
	}
	b.WriteString(fmt.Sprintf("✓ New cycle started at week %s with %d locked keywords:\n", resp.Week, len(resp.Locked)))
	for i, kw := range resp.Locked {
		b.WriteString(fmt.Sprintf("  %2d. %s (rank %d)\n", i+1, kw.Keyword, kw.InitialRank))
	}
	if resp.DuplicateRows > 0 {
		b.WriteString(fmt.Sprintf("\nDuplicate rows dropped: %d\n", resp.DuplicateRows))
	}

	return b.String(), nil
}

// formatStatusHuman renders the active cycle summary
func formatStatusHuman(resp *tracker.Status) (string, error) {
	var b strings.Builder

	wl := resp.Watchlist
	b.WriteString(fmt.Sprintf("Tracking Status: %s\n", wl.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Watchlist: %s (%s)\n", wl.ID, wl.Status))
	b.WriteString(fmt.Sprintf("Cycle: %s .. %s (%d/%d weeks)\n",
		wl.CycleStartWeek, wl.LastWeek, wl.WeekCount, resp.MaxWeeks))
	b.WriteString(fmt.Sprintf("Created: %s\n", wl.CreatedAt.Format("2006-01-02 15:04")))

	b.WriteString(fmt.Sprintf("\nLocked keywords (%d):\n", len(resp.Locked)))
	for i, kw := range resp.Locked {
		b.WriteString(fmt.Sprintf("  %2d. %-26s (initial rank %d)\n", i+1, kw.Keyword, kw.InitialRank))
	}

	b.WriteString("\nWeeks:\n")
	for _, entry := range resp.Weeks {
		source := entry.Source
		if source == "" {
			source = "-"
		}
		b.WriteString(fmt.Sprintf("  %2d. %s  %s  (imported %s)\n",
			entry.Seq, entry.Week, source, entry.ImportedAt.Format("2006-01-02")))
	}

	if wl.WeekCount >= resp.MaxWeeks {
		b.WriteString(fmt.Sprintf("\n⚠ Cycle window used up (%d/%d weeks). Run 'sqptrack reset --csv <new-export>'.\n",
			wl.WeekCount, resp.MaxWeeks))
	}

	return b.String(), nil
}

// formatHistoryHuman renders one keyword's week sequence
func formatHistoryHuman(resp *HistoryResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("History: %q on %s\n", resp.Keyword, resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Locked at rank %d since %s\n\n", resp.InitialRank, resp.CycleStart))
	b.WriteString(fmt.Sprintf("  %-9s %5s %8s %7s\n", "WEEK", "RANK", "VOLUME", "SHARE"))
	for _, wk := range resp.Weeks {
		if wk.Missing {
			b.WriteString(fmt.Sprintf("  %-9s %5s %8s %7s  ✗ missing\n", wk.Week, "-", "-", "-"))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-9s %5d %8d %6.1f%%\n", wk.Week, wk.Rank, wk.Volume, wk.PurchaseShare))
	}

	return b.String(), nil
}

// formatReportHuman renders the single-week analyzer report
func formatReportHuman(resp *analyze.Report) (string, error) {
	var b strings.Builder

	asin := resp.ASIN
	if asin == "" {
		asin = "-"
	}
	b.WriteString(fmt.Sprintf("SQP Report: %s - %s\n", asin, resp.Week))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	s := resp.Summary
	b.WriteString(fmt.Sprintf("Keywords analyzed: %d\n", s.Total))
	b.WriteString(fmt.Sprintf("Health score: %.1f/100\n\n", s.HealthScore))

	b.WriteString("Categories:\n")
	b.WriteString(fmt.Sprintf("  Bread & butter: %d   Opportunities: %d   Leaks: %d\n",
		s.BreadButter, s.Opportunities, s.Leaks))
	b.WriteString("Diagnostics:\n")
	b.WriteString(fmt.Sprintf("  Ghosts: %d   Window shoppers: %d   Price problems: %d   Healthy: %d\n",
		s.Ghosts, s.WindowShoppers, s.PriceProblems, s.Healthy))
	b.WriteString("Placements:\n")
	b.WriteString(fmt.Sprintf("  Title: %d   Bullets: %d   Backend: %d   Description: %d\n\n",
		s.TitleKeywords, s.BulletsKeywords, s.BackendKeywords, s.DescriptionKeywords))

	writeBucket := func(name string, bucket []analyze.CategorizedKeyword) {
		if len(bucket) == 0 {
			return
		}
		b.WriteString(name + ":\n")
		for _, kw := range bucket {
			b.WriteString(fmt.Sprintf("  - %-26s vol %6d  imp %5.1f%%  clk %5.1f%%  buy %5.1f%%\n",
				kw.Keyword, kw.Volume, kw.ImpressionShare, kw.ClickShare, kw.PurchaseShare))
		}
		b.WriteString("\n")
	}
	writeBucket("Bread & butter", analyze.Filter(resp.Categorized, analyze.BreadButter))
	writeBucket("Opportunities", analyze.Filter(resp.Categorized, analyze.Opportunity))
	writeBucket("Leaks", analyze.Filter(resp.Categorized, analyze.Leak))

	if len(resp.PriceFlags) > 0 {
		b.WriteString("Price flags:\n")
		for _, pf := range resp.PriceFlags {
			icon := "⚠"
			if pf.Severity == analyze.PriceCritical {
				icon = "✗"
			}
			b.WriteString(fmt.Sprintf("  %s %-26s $%.2f vs market $%.2f (%+.1f%%)\n",
				icon, pf.Keyword, pf.ASINPrice, pf.MarketPrice, pf.DiffPct))
		}
		b.WriteString("\n")
	}

	issues := 0
	b.WriteString("Top issues:\n")
	for _, d := range resp.Diagnostics {
		if d.Diagnostic == analyze.Healthy {
			continue
		}
		b.WriteString(fmt.Sprintf("  ⚠ %s (%s, rank %s)\n", d.Keyword, d.Diagnostic, d.RankStatus))
		if d.RecommendedFix != "" {
			b.WriteString(fmt.Sprintf("    %s\n", d.RecommendedFix))
		}
		issues++
		if issues >= 10 {
			break
		}
	}
	if issues == 0 {
		b.WriteString("  ✓ none\n")
	}

	return b.String(), nil
}

// formatTrendsHuman renders the purchase-share trend per keyword
func formatTrendsHuman(resp *TrendsResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Purchase-Share Trends: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Cycle %s .. %s (%d weeks)\n\n", resp.CycleStart, resp.LastWeek, resp.WeekCount))

	for _, trend := range resp.Trends {
		icon := " "
		switch trend.Direction {
		case analyze.Growing:
			icon = "✓"
		case analyze.Declining:
			icon = "⚠"
		}
		if len(trend.Shares) == 0 {
			b.WriteString(fmt.Sprintf("  ✗ %-26s no observed weeks\n", trend.Keyword))
			continue
		}
		first := trend.Shares[0]
		last := trend.Shares[len(trend.Shares)-1]
		b.WriteString(fmt.Sprintf("  %s %-26s %-9s %5.1f%% -> %5.1f%% (%+.1f%% over %d weeks)\n",
			icon, trend.Keyword, trend.Direction, first, last, trend.GrowthPct, len(trend.Shares)))
	}

	return b.String(), nil
}

// formatArchivesHuman renders the archived cycles list
func formatArchivesHuman(resp *ArchivesResponse) (string, error) {
	var b strings.Builder

	scope := resp.ASIN
	if scope == "" {
		scope = "all products"
	}
	b.WriteString(fmt.Sprintf("Archived Cycles: %s\n", scope))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Archives) == 0 {
		b.WriteString("No archived cycles.\n")
		return b.String(), nil
	}

	for i, arch := range resp.Archives {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, arch.ArchiveID))
		if arch.Label != "" {
			b.WriteString(fmt.Sprintf("   Label: %s\n", arch.Label))
		}
		b.WriteString(fmt.Sprintf("   Cycle start: %s, weeks: %d\n", arch.CycleStartWeek, arch.WeekCount))
		b.WriteString(fmt.Sprintf("   Archived: %s\n", arch.ArchivedAt.Format("2006-01-02 15:04")))
	}

	return b.String(), nil
}

// formatProductsHuman renders the product registry
func formatProductsHuman(resp *ProductsResponse) (string, error) {
	var b strings.Builder

	b.WriteString("Products\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Products) == 0 {
		b.WriteString("No products registered. Run 'sqptrack products add <ASIN>'.\n")
		return b.String(), nil
	}

	for _, p := range resp.Products {
		icon := "✓"
		if p.Status != "active" {
			icon = "⚠"
		}
		title := p.Title
		if title == "" {
			title = "-"
		}
		b.WriteString(fmt.Sprintf("  %s %s  %-9s %s\n", icon, p.ASIN, p.Status, title))
	}
	b.WriteString(fmt.Sprintf("\n%d product(s), %d active\n", len(resp.Products), resp.ActiveCount))

	return b.String(), nil
}

// formatBatchHuman renders a folder import: one line per appended week
// plus the final week's full view
func formatBatchHuman(resp *TrackBatchResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Folder Import: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, wk := range resp.Weeks {
		b.WriteString(fmt.Sprintf("  ✓ %s appended as week %d/%d (%d alert(s))\n",
			wk.Week, wk.Seq, wk.MaxWeeks, wk.AlertCount))
	}
	b.WriteString(fmt.Sprintf("\nImported %d week(s).\n", len(resp.Weeks)))

	if resp.Final != nil {
		b.WriteString("\n")
		final, err := formatAlertViewHuman(resp.Final)
		if err != nil {
			return "", err
		}
		b.WriteString(final)
	}

	return b.String(), nil
}

// formatFetchHuman renders a fetched report that was not tracked
func formatFetchHuman(resp *FetchResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("SP-API Report: %s\n", resp.ASIN))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("✓ Report fetched for week %s\n", resp.Week))
	b.WriteString(fmt.Sprintf("Keywords: %d (skipped rows: %d)\n", resp.Keywords, resp.Skipped))

	if len(resp.Top) > 0 {
		b.WriteString("\nTop keywords:\n")
		b.WriteString(fmt.Sprintf("  %-26s %5s %8s %7s\n", "KEYWORD", "RANK", "VOLUME", "SHARE"))
		for _, row := range resp.Top {
			b.WriteString(fmt.Sprintf("  %-26s %5d %8d %6.1f%%\n",
				row.Keyword, row.Rank, row.Volume, row.PurchaseShare))
		}
	}

	b.WriteString("\nRe-run with --track to append this week to the watchlist.\n")

	return b.String(), nil
}

// formatReportListHuman renders recent SP-API reports
func formatReportListHuman(resp *ReportListResponse) (string, error) {
	var b strings.Builder

	b.WriteString("Recent SQP Reports\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Reports) == 0 {
		b.WriteString("No reports found.\n")
		return b.String(), nil
	}

	for i, r := range resp.Reports {
		icon := "⚠"
		switch r.ProcessingStatus {
		case "DONE":
			icon = "✓"
		case "FATAL", "CANCELLED":
			icon = "✗"
		}
		b.WriteString(fmt.Sprintf("%d. %s %s  %s  %s\n", i+1, icon, r.ReportID, r.ProcessingStatus, r.CreatedTime))
	}

	return b.String(), nil
}

// formatReportCheckHuman renders one report's processing status
func formatReportCheckHuman(resp *ReportCheckResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Report Status: %s\n", resp.ReportID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	icon := "⚠"
	switch resp.ProcessingStatus {
	case "DONE":
		icon = "✓"
	case "FATAL", "CANCELLED":
		icon = "✗"
	}
	b.WriteString(fmt.Sprintf("%s Status: %s\n", icon, resp.ProcessingStatus))
	if resp.ReportDocumentID != "" {
		b.WriteString(fmt.Sprintf("Document: %s\n", resp.ReportDocumentID))
	}
	if resp.CreatedTime != "" {
		b.WriteString(fmt.Sprintf("Created: %s\n", resp.CreatedTime))
	}

	return b.String(), nil
}

// exitWithError prints the error with any suggested fixes and exits
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if se, ok := err.(*sqperrors.SqpError); ok && len(se.SuggestedFixes) > 0 {
		fmt.Fprintln(os.Stderr, "\nSuggested fixes:")
		for _, fix := range se.SuggestedFixes {
			if fix.Description != "" {
				fmt.Fprintf(os.Stderr, "  - %s\n", fix.Description)
			}
			if fix.Command != "" {
				fmt.Fprintf(os.Stderr, "    $ %s\n", fix.Command)
			}
		}
	}
	os.Exit(1)
}
