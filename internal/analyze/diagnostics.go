package analyze

import (
	"sort"

	"sqptrack/internal/config"
	"sqptrack/internal/sqp"
)

// DiagnosticType names the root cause detected for a keyword
type DiagnosticType string

const (
	// Ghost keywords have high volume but the ASIN is effectively invisible
	Ghost DiagnosticType = "ghost"
	// WindowShopper keywords are seen but rarely clicked
	WindowShopper DiagnosticType = "window_shopper"
	// PriceProblem keywords are clicked but lose on price
	PriceProblem DiagnosticType = "price_problem"
	// Healthy keywords show no detectable issue
	Healthy DiagnosticType = "healthy"
)

// RankStatus is the coarse rank tier of a keyword
type RankStatus string

const (
	// RankTop is Amazon's number-one term for the ASIN
	RankTop RankStatus = "top"
	// RankStrong is a top-ten term
	RankStrong RankStatus = "strong"
	// RankPageOne sits in the first results page band
	RankPageOne RankStatus = "page_one"
	// RankWeak is everything below
	RankWeak RankStatus = "weak"
)

// KeywordDiagnostic is one keyword's root-cause diagnosis with its
// untapped-potential score
type KeywordDiagnostic struct {
	Keyword          string         `json:"keyword"`
	Diagnostic       DiagnosticType `json:"diagnostic"`
	RankStatus       RankStatus     `json:"rankStatus"`
	OpportunityScore float64        `json:"opportunityScore"`
	Volume           int            `json:"volume"`
	ImpressionShare  float64        `json:"impressionShare"`
	ClickShare       float64        `json:"clickShare"`
	PurchaseShare    float64        `json:"purchaseShare"`
	RecommendedFix   string         `json:"recommendedFix,omitempty"`
}

// Diagnose classifies each keyword by root cause, in priority order:
// ghost, window shopper, price problem, healthy. The result is sorted
// by opportunity score descending.
func Diagnose(records []sqp.Record, priceFlags []PriceFlag, cfg config.AnalyzeConfig) []KeywordDiagnostic {
	flagged := make(map[string]bool, len(priceFlags))
	for _, pf := range priceFlags {
		flagged[pf.Keyword] = true
	}

	out := make([]KeywordDiagnostic, 0, len(records))
	for _, rec := range records {
		diagnostic := diagnoseOne(rec, flagged[rec.Keyword], cfg)
		out = append(out, KeywordDiagnostic{
			Keyword:          rec.Keyword,
			Diagnostic:       diagnostic,
			RankStatus:       rankStatus(rec.Rank, cfg),
			OpportunityScore: OpportunityScore(rec),
			Volume:           rec.Volume,
			ImpressionShare:  rec.ImpressionShare,
			ClickShare:       rec.ClickShare,
			PurchaseShare:    rec.PurchaseShare,
			RecommendedFix:   fixRecommendation(diagnostic),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpportunityScore > out[j].OpportunityScore
	})

	return out
}

func diagnoseOne(rec sqp.Record, priceFlagged bool, cfg config.AnalyzeConfig) DiagnosticType {
	switch {
	case rec.Volume >= cfg.GhostMinVolume && rec.ImpressionShare < cfg.GhostMaxImpressionShare:
		return Ghost
	case rec.ImpressionShare >= cfg.WindowShopperMinImpressionShare &&
		rec.ClickShare < cfg.WindowShopperMaxClickShare:
		return WindowShopper
	case priceFlagged && rec.ImpressionShare >= cfg.PriceProblemMinImpressionShare:
		return PriceProblem
	default:
		return Healthy
	}
}

// rankStatus maps Amazon's importance rank to a coarse tier
func rankStatus(rank int, cfg config.AnalyzeConfig) RankStatus {
	switch {
	case rank <= cfg.RankTopMax:
		return RankTop
	case rank <= cfg.RankStrongMax:
		return RankStrong
	case rank <= cfg.RankPageOneMax:
		return RankPageOne
	default:
		return RankWeak
	}
}

// OpportunityScore measures untapped potential: volume weighted by the
// impression share the ASIN is not capturing
func OpportunityScore(rec sqp.Record) float64 {
	return float64(rec.Volume) * (1 - rec.ImpressionShare/100)
}

func fixRecommendation(d DiagnosticType) string {
	switch d {
	case Ghost:
		return "Not ranking for this keyword. Add it to the listing or run PPC to build relevance."
	case WindowShopper:
		return "Customers see but don't click. Improve main image, title, or review count."
	case PriceProblem:
		return "Price is above market. Consider a price adjustment or bundle offer."
	case Healthy:
		return "No issues detected. Maintain current strategy."
	default:
		return ""
	}
}
