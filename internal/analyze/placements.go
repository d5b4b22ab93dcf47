package analyze

import (
	"fmt"
	"sort"

	"sqptrack/internal/config"
	"sqptrack/internal/sqp"
)

// Placement is the recommended listing location for a keyword
type Placement string

const (
	// PlacementTitle keywords belong in the product title
	PlacementTitle Placement = "title"
	// PlacementBullets keywords belong in the bullet points
	PlacementBullets Placement = "bullets"
	// PlacementBackend keywords go in the hidden search terms
	PlacementBackend Placement = "backend"
	// PlacementDescription keywords fit the description or A+ content
	PlacementDescription Placement = "description"
)

// placementOrder ranks placements for display, title first
var placementOrder = map[Placement]int{
	PlacementTitle:       0,
	PlacementBullets:     1,
	PlacementBackend:     2,
	PlacementDescription: 3,
}

// KeywordPlacement is one keyword's recommended location with its
// priority within that location (1 = highest volume)
type KeywordPlacement struct {
	Keyword    string    `json:"keyword"`
	Placement  Placement `json:"placement"`
	Priority   int       `json:"priority"`
	Volume     int       `json:"volume"`
	ClickShare float64   `json:"clickShare"`
	Reason     string    `json:"reason,omitempty"`
}

// RecommendPlacements assigns each keyword a listing location from its
// volume percentile within the set. Results are grouped title-first
// and ordered by priority inside each group.
func RecommendPlacements(records []sqp.Record, cfg config.AnalyzeConfig) []KeywordPlacement {
	if len(records) == 0 {
		return nil
	}

	volumes := make([]int, len(records))
	for i, rec := range records {
		volumes[i] = rec.Volume
	}

	out := make([]KeywordPlacement, 0, len(records))
	for _, rec := range records {
		pct := Percentile(rec.Volume, volumes)
		placement, reason := recommendOne(rec, pct, cfg)
		out = append(out, KeywordPlacement{
			Keyword:    rec.Keyword,
			Placement:  placement,
			Volume:     rec.Volume,
			ClickShare: rec.ClickShare,
			Reason:     reason,
		})
	}

	// Priority 1 = highest volume within each placement
	for placement := range placementOrder {
		group := make([]*KeywordPlacement, 0, len(out))
		for i := range out {
			if out[i].Placement == placement {
				group = append(group, &out[i])
			}
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Volume > group[j].Volume
		})
		for i, p := range group {
			p.Priority = i + 1
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if placementOrder[out[i].Placement] != placementOrder[out[j].Placement] {
			return placementOrder[out[i].Placement] < placementOrder[out[j].Placement]
		}
		return out[i].Priority < out[j].Priority
	})

	return out
}

func recommendOne(rec sqp.Record, pct float64, cfg config.AnalyzeConfig) (Placement, string) {
	if pct >= cfg.TitleTopPercentile {
		return PlacementTitle,
			fmt.Sprintf("Top %.0f%% volume - must be in title", 100-pct)
	}
	if pct >= cfg.TitleMinPercentile && rec.ClickShare >= cfg.TitleMinClickShare {
		return PlacementTitle,
			fmt.Sprintf("High volume (%.0fth percentile) with %.1f%% click share", pct, rec.ClickShare)
	}
	if pct >= cfg.BulletsMinPercentile {
		return PlacementBullets,
			fmt.Sprintf("Mid-high volume (%.0fth percentile) - include in bullet points", pct)
	}
	if pct >= cfg.BackendMinPercentile {
		return PlacementBackend,
			fmt.Sprintf("Moderate volume (%.0fth percentile) - add to backend keywords", pct)
	}
	return PlacementDescription,
		fmt.Sprintf("Lower volume (%.0fth percentile) - consider for description or A+ content", pct)
}

// Percentile returns the percentage of values less than or equal to
// value
func Percentile(value int, values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		if value >= values[0] {
			return 100
		}
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= value {
			count++
		}
	}
	return float64(count) / float64(len(values)) * 100
}
