package analyze

import "sqptrack/internal/sqp"

// Summary is the per-ASIN rollup of one week's analysis
type Summary struct {
	ASIN  string `json:"asin"`
	Week  string `json:"week"`
	Total int    `json:"totalKeywords"`

	BreadButter   int `json:"breadButter"`
	Opportunities int `json:"opportunities"`
	Leaks         int `json:"leaks"`
	PriceFlagged  int `json:"priceFlagged"`

	Ghosts         int `json:"ghosts"`
	WindowShoppers int `json:"windowShoppers"`
	PriceProblems  int `json:"priceProblems"`
	Healthy        int `json:"healthy"`

	TitleKeywords       int `json:"titleKeywords"`
	BulletsKeywords     int `json:"bulletsKeywords"`
	BackendKeywords     int `json:"backendKeywords"`
	DescriptionKeywords int `json:"descriptionKeywords"`

	HealthScore float64 `json:"healthScore"`
}

// Summarize rolls the analyzer outputs into counts and the health
// score
func Summarize(asin string, week sqp.Week, categorized []CategorizedKeyword,
	diagnostics []KeywordDiagnostic, placements []KeywordPlacement, priceFlags []PriceFlag) Summary {

	s := Summary{
		ASIN:         asin,
		Week:         week.String(),
		Total:        len(categorized),
		PriceFlagged: len(priceFlags),
	}

	for _, kw := range categorized {
		switch kw.Category {
		case BreadButter:
			s.BreadButter++
		case Opportunity:
			s.Opportunities++
		case Leak:
			s.Leaks++
		}
	}

	for _, d := range diagnostics {
		switch d.Diagnostic {
		case Ghost:
			s.Ghosts++
		case WindowShopper:
			s.WindowShoppers++
		case PriceProblem:
			s.PriceProblems++
		case Healthy:
			s.Healthy++
		}
	}

	for _, p := range placements {
		switch p.Placement {
		case PlacementTitle:
			s.TitleKeywords++
		case PlacementBullets:
			s.BulletsKeywords++
		case PlacementBackend:
			s.BackendKeywords++
		case PlacementDescription:
			s.DescriptionKeywords++
		}
	}

	s.HealthScore = HealthScore(s.Total, s.BreadButter, s.Leaks, s.PriceFlagged)

	return s
}

// HealthScore grades listing health 0-100: rewarded for converting
// keywords, penalized for leaks and price flags. The price penalty is
// capped at 20 points.
func HealthScore(total, breadButter, leaks, priceFlagged int) float64 {
	if total == 0 {
		return 0
	}

	base := float64(breadButter) / float64(total) * 100
	leakPenalty := float64(leaks) / float64(total) * 30
	pricePenalty := float64(priceFlagged) / float64(total) * 20
	if pricePenalty > 20 {
		pricePenalty = 20
	}

	score := base - leakPenalty - pricePenalty
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
