package analyze

import (
	"sort"

	"sqptrack/internal/config"
	"sqptrack/internal/sqp"
)

// PriceSeverity grades how far the ASIN's price sits above market
type PriceSeverity string

const (
	// PriceWarning means moderately above the market median
	PriceWarning PriceSeverity = "warning"
	// PriceCritical means far enough above market to suppress conversion
	PriceCritical PriceSeverity = "critical"
)

// PriceFlag marks a keyword where the ASIN's price undercuts its own
// conversion
type PriceFlag struct {
	Keyword         string        `json:"keyword"`
	ASINPrice       float64       `json:"asinPrice"`
	MarketPrice     float64       `json:"marketPrice"`
	DiffPct         float64       `json:"diffPct"`
	Severity        PriceSeverity `json:"severity"`
	ImpressionShare float64       `json:"impressionShare"`
	PurchaseShare   float64       `json:"purchaseShare"`
}

// CheckPrices benchmarks each keyword's ASIN price against the market
// median price shoppers saw for that query. Only keywords at or past
// the warning threshold are returned, worst first. Records without
// both prices are skipped.
func CheckPrices(records []sqp.Record, cfg config.AnalyzeConfig) []PriceFlag {
	var flags []PriceFlag
	for _, rec := range records {
		if rec.ASINPrice <= 0 || rec.MarketPrice <= 0 {
			continue
		}
		diff := (rec.ASINPrice - rec.MarketPrice) / rec.MarketPrice * 100
		if diff < cfg.PriceWarnPct {
			continue
		}
		severity := PriceWarning
		if diff >= cfg.PriceCritPct {
			severity = PriceCritical
		}
		flags = append(flags, PriceFlag{
			Keyword:         rec.Keyword,
			ASINPrice:       rec.ASINPrice,
			MarketPrice:     rec.MarketPrice,
			DiffPct:         diff,
			Severity:        severity,
			ImpressionShare: rec.ImpressionShare,
			PurchaseShare:   rec.PurchaseShare,
		})
	}

	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].DiffPct > flags[j].DiffPct
	})

	return flags
}
