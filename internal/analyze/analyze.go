// Package analyze implements the single-week keyword analyzers: the
// three-bucket categorizer, root-cause diagnostics, listing placement
// recommendations, price benchmarking, purchase-share trends, and the
// per-ASIN summary with its health score.
package analyze

import (
	"sqptrack/internal/config"
	"sqptrack/internal/sqp"
)

// Report bundles every analyzer's output for one week of one ASIN
type Report struct {
	ASIN  string `json:"asin"`
	Week  string `json:"week"`
	Total int    `json:"totalKeywords"`

	Categorized []CategorizedKeyword `json:"categorized"`
	Diagnostics []KeywordDiagnostic  `json:"diagnostics"`
	Placements  []KeywordPlacement   `json:"placements"`
	PriceFlags  []PriceFlag          `json:"priceFlags,omitempty"`

	Summary Summary `json:"summary"`
}

// Run executes every single-week analyzer over one week's records and
// assembles the report. Absent sentinel records carry no metrics and
// are excluded up front. The diagnostics list is capped at the
// configured opportunity count; everything else reports all keywords.
func Run(asin string, week sqp.Week, records []sqp.Record, cfg config.AnalyzeConfig) *Report {
	present := make([]sqp.Record, 0, len(records))
	for _, rec := range records {
		if !rec.Missing {
			present = append(present, rec)
		}
	}

	categorized := Categorize(present, cfg)
	priceFlags := CheckPrices(present, cfg)
	diagnostics := Diagnose(present, priceFlags, cfg)
	placements := RecommendPlacements(present, cfg)

	report := &Report{
		ASIN:        asin,
		Week:        week.String(),
		Total:       len(present),
		Categorized: categorized,
		Diagnostics: diagnostics,
		Placements:  placements,
		PriceFlags:  priceFlags,
		Summary:     Summarize(asin, week, categorized, diagnostics, placements, priceFlags),
	}

	if cfg.TopOpportunities > 0 && len(report.Diagnostics) > cfg.TopOpportunities {
		report.Diagnostics = report.Diagnostics[:cfg.TopOpportunities]
	}

	return report
}
