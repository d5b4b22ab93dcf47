package analyze

import "sqptrack/internal/sqp"

// TrendDirection is the coarse direction of a purchase-share series
type TrendDirection string

const (
	// Growing means purchase share rose past the deadband
	Growing TrendDirection = "growing"
	// Stable means the series moved within the deadband
	Stable TrendDirection = "stable"
	// Declining means purchase share fell past the deadband
	Declining TrendDirection = "declining"
)

// trendWindow caps the series at one tracking cycle
const trendWindow = 12

// KeywordTrend is the purchase-share series for one keyword across the
// cycle, with its direction and total growth
type KeywordTrend struct {
	Keyword   string         `json:"keyword"`
	Weeks     []string       `json:"weeks"`
	Shares    []float64      `json:"shares"`
	Direction TrendDirection `json:"direction"`
	GrowthPct float64        `json:"growthPct"`
}

// TrendOf builds the purchase-share trend from a keyword's history in
// append order. Absent weeks carry no share and are skipped; the
// series keeps at most the last twelve observed weeks. Direction
// compares first against last observation with the given deadband in
// percentage points.
func TrendOf(keyword string, history []sqp.Record, deadbandPts float64) KeywordTrend {
	trend := KeywordTrend{
		Keyword:   keyword,
		Direction: Stable,
	}

	for _, rec := range history {
		if rec.Missing {
			continue
		}
		trend.Weeks = append(trend.Weeks, rec.Week.String())
		trend.Shares = append(trend.Shares, rec.PurchaseShare)
	}
	if len(trend.Shares) > trendWindow {
		trend.Weeks = trend.Weeks[len(trend.Weeks)-trendWindow:]
		trend.Shares = trend.Shares[len(trend.Shares)-trendWindow:]
	}

	if len(trend.Shares) < 2 {
		return trend
	}

	first := trend.Shares[0]
	last := trend.Shares[len(trend.Shares)-1]
	diff := last - first

	switch {
	case diff > deadbandPts:
		trend.Direction = Growing
	case diff < -deadbandPts:
		trend.Direction = Declining
	}

	if first > 0 {
		trend.GrowthPct = diff / first * 100
	}

	return trend
}
