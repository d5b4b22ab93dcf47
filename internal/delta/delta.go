// Package delta computes week-over-week metric deltas and classifies
// each locked keyword with at most one alert tag per week.
package delta

import (
	"fmt"

	"sqptrack/internal/sqp"
)

// Tag is the alert classification for one keyword in one week
type Tag string

const (
	// None means no alert fired
	None Tag = "none"
	// VolumeDrop means search volume fell past the drop threshold
	VolumeDrop Tag = "volume-drop"
	// PurchaseDrop means purchase share fell past the drop threshold
	PurchaseDrop Tag = "purchase-drop"
	// Missing means the keyword was absent from the week's import
	Missing Tag = "missing"
)

// Thresholds are the alert trigger levels, expressed as positive
// magnitudes: a volume delta of -30% trips VolumeDropPct=30.
type Thresholds struct {
	VolumeDropPct   float64
	PurchaseDropPts float64
}

// Value is a delta that may be undefined. Volume deltas are undefined
// when the previous volume is zero; both deltas are undefined when
// either endpoint is an absent sentinel or there is no previous week.
type Value struct {
	Delta   float64 `json:"delta"`
	Defined bool    `json:"defined"`
}

// Result is the classification of one keyword for one week
type Result struct {
	Tag    Tag   `json:"tag"`
	Volume Value `json:"volumeDelta"` // percent of previous volume
	Share  Value `json:"shareDelta"`  // percentage points
}

// Compute classifies the current record against the previous week's.
// prev is nil on the first recorded week, which always classifies as
// None. Exactly one tag applies, in priority order: Missing, then
// VolumeDrop, then PurchaseDrop, then None.
func Compute(prev *sqp.Record, cur sqp.Record, th Thresholds) Result {
	res := Result{Tag: None}

	if cur.Missing {
		res.Tag = Missing
		return res
	}
	if prev == nil || prev.Missing {
		// No baseline: first week, or the keyword just returned
		// after an absent week.
		return res
	}

	if prev.Volume > 0 {
		res.Volume = Value{
			Delta:   (float64(cur.Volume) - float64(prev.Volume)) / float64(prev.Volume) * 100,
			Defined: true,
		}
	}
	res.Share = Value{
		Delta:   cur.PurchaseShare - prev.PurchaseShare,
		Defined: true,
	}

	switch {
	case res.Volume.Defined && res.Volume.Delta <= -th.VolumeDropPct:
		res.Tag = VolumeDrop
	case res.Share.Defined && res.Share.Delta <= -th.PurchaseDropPts:
		res.Tag = PurchaseDrop
	}

	return res
}

// Pct renders a volume delta as a signed percentage ("+12.5%"), or
// "n/a" when undefined
func (v Value) Pct() string {
	if !v.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", v.Delta)
}

// Pts renders a share delta in percentage points ("-20.0pp"), or "n/a"
// when undefined
func (v Value) Pts() string {
	if !v.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%+.1fpp", v.Delta)
}
