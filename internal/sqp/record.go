// Package sqp defines the core data types for Amazon Search Query
// Performance tracking: weekly metric records and week identifiers.
package sqp

import "strings"

// Record is one keyword's metrics for one reporting week.
// Records are immutable once written to the store; exactly one record
// exists per (keyword, week) pair within a cycle.
type Record struct {
	Keyword       string  `json:"keyword"`
	Week          Week    `json:"-"`
	Rank          int     `json:"rank"`          // 1 = most important
	Volume        int     `json:"volume"`        // non-negative search count
	PurchaseShare float64 `json:"purchaseShare"` // percent, 0..100

	// Diagnostic-only fields, optional in imports.
	ImpressionShare float64 `json:"impressionShare,omitempty"`
	ClickShare      float64 `json:"clickShare,omitempty"`
	ASINPrice       float64 `json:"asinPrice,omitempty"`
	MarketPrice     float64 `json:"marketPrice,omitempty"`

	// Missing marks the absent sentinel appended when a locked keyword
	// does not appear in a week's import. Rank and shares are undefined
	// and volume is zero on such records.
	Missing bool `json:"missing,omitempty"`
}

// AbsentRecord returns the sentinel record appended for a locked keyword
// that is absent from a week's import.
func AbsentRecord(keyword string, week Week) Record {
	return Record{
		Keyword: keyword,
		Week:    week,
		Missing: true,
	}
}

// LockedKeyword is one member of a cycle's locked keyword set, with the
// rank it held when the cycle started. The locked set and its order are
// frozen at cycle start.
type LockedKeyword struct {
	Keyword     string `json:"keyword"`
	InitialRank int    `json:"initialRank"`
}

// NormalizeKeyword canonicalizes a keyword for identity: lower-cased
// with runs of whitespace collapsed to single spaces.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
