package analyze

import (
	"sqptrack/internal/config"
	"sqptrack/internal/sqp"
)

// Category is the three-bucket classification of a keyword
type Category string

const (
	// BreadButter keywords already convert well and need protecting
	BreadButter Category = "bread_butter"
	// Opportunity keywords convert when seen but lack visibility
	Opportunity Category = "opportunity"
	// Leak keywords draw impressions that never convert
	Leak Category = "leak"
	// Uncategorized keywords match no bucket
	Uncategorized Category = "uncategorized"
)

// CategorizedKeyword is one keyword with its bucket and the metrics
// that put it there
type CategorizedKeyword struct {
	Keyword         string   `json:"keyword"`
	Category        Category `json:"category"`
	Action          string   `json:"action,omitempty"`
	Volume          int      `json:"volume"`
	ImpressionShare float64  `json:"impressionShare"`
	ClickShare      float64  `json:"clickShare"`
	PurchaseShare   float64  `json:"purchaseShare"`
}

// Categorize assigns each keyword to exactly one bucket. Buckets are
// checked in order: bread-and-butter, opportunity, leak. Input order
// is preserved.
func Categorize(records []sqp.Record, cfg config.AnalyzeConfig) []CategorizedKeyword {
	out := make([]CategorizedKeyword, 0, len(records))
	for _, rec := range records {
		category := categorizeOne(rec, cfg)
		out = append(out, CategorizedKeyword{
			Keyword:         rec.Keyword,
			Category:        category,
			Action:          recommendedAction(category),
			Volume:          rec.Volume,
			ImpressionShare: rec.ImpressionShare,
			ClickShare:      rec.ClickShare,
			PurchaseShare:   rec.PurchaseShare,
		})
	}
	return out
}

func categorizeOne(rec sqp.Record, cfg config.AnalyzeConfig) Category {
	switch {
	case rec.PurchaseShare >= cfg.BreadButterMinPurchaseShare:
		return BreadButter
	case rec.ImpressionShare <= cfg.OpportunityMaxImpressionShare &&
		rec.PurchaseShare >= cfg.OpportunityMinPurchaseShare:
		return Opportunity
	case rec.ImpressionShare >= cfg.LeakMinImpressionShare &&
		rec.ClickShare < cfg.LeakMaxClickShare &&
		rec.PurchaseShare < cfg.LeakMaxPurchaseShare:
		return Leak
	default:
		return Uncategorized
	}
}

func recommendedAction(c Category) string {
	switch c {
	case BreadButter:
		return "Protect: keep inventory deep and defend ad position on this term."
	case Opportunity:
		return "Push: converts when seen but barely visible. Raise bids or add to listing."
	case Leak:
		return "Fix or cut: traffic arrives but never converts. Check relevance and imagery."
	default:
		return ""
	}
}

// Filter returns the keywords in one bucket, preserving order
func Filter(categorized []CategorizedKeyword, c Category) []CategorizedKeyword {
	var out []CategorizedKeyword
	for _, kw := range categorized {
		if kw.Category == c {
			out = append(out, kw)
		}
	}
	return out
}
