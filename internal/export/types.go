// Package export renders a tracking cycle as a shareable document:
// the full snapshot as JSON or YAML, and the week-over-week
// purchase-share grid as CSV.
package export

// Snapshot is the complete exportable state of one active cycle.
type Snapshot struct {
	Metadata Metadata        `json:"metadata" yaml:"metadata"`
	Cycle    Cycle           `json:"cycle" yaml:"cycle"`
	Keywords []KeywordSeries `json:"keywords" yaml:"keywords"`
	Alerts   []Alert         `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Archives []ArchiveEntry  `json:"archives,omitempty" yaml:"archives,omitempty"`
}

// Metadata identifies the export itself
type Metadata struct {
	Tool         string `json:"tool" yaml:"tool"`
	ASIN         string `json:"asin" yaml:"asin"`
	Generated    string `json:"generated" yaml:"generated"` // RFC 3339
	WeekCount    int    `json:"weekCount" yaml:"weekCount"`
	KeywordCount int    `json:"keywordCount" yaml:"keywordCount"`
}

// Cycle describes the active watchlist and its appended weeks
type Cycle struct {
	WatchlistID    string     `json:"watchlistId" yaml:"watchlistId"`
	CycleStartWeek string     `json:"cycleStartWeek" yaml:"cycleStartWeek"`
	LastWeek       string     `json:"lastWeek" yaml:"lastWeek"`
	WeekCount      int        `json:"weekCount" yaml:"weekCount"`
	MaxWeeks       int        `json:"maxWeeks" yaml:"maxWeeks"`
	CreatedAt      string     `json:"createdAt" yaml:"createdAt"`
	Weeks          []WeekLine `json:"weeks" yaml:"weeks"`
}

// WeekLine is one appended week with its import provenance
type WeekLine struct {
	Week       string `json:"week" yaml:"week"`
	Seq        int    `json:"seq" yaml:"seq"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
	ImportedAt string `json:"importedAt" yaml:"importedAt"`
}

// KeywordSeries is one locked keyword's full week-by-week history,
// with exactly one point per appended week (absent weeks included as
// missing points).
type KeywordSeries struct {
	Keyword     string  `json:"keyword" yaml:"keyword"`
	InitialRank int     `json:"initialRank" yaml:"initialRank"`
	Points      []Point `json:"points" yaml:"points"`
}

// Point is one keyword's metrics for one week
type Point struct {
	Week            string  `json:"week" yaml:"week"`
	Rank            int     `json:"rank,omitempty" yaml:"rank,omitempty"`
	Volume          int     `json:"volume" yaml:"volume"`
	PurchaseShare   float64 `json:"purchaseShare" yaml:"purchaseShare"`
	ImpressionShare float64 `json:"impressionShare,omitempty" yaml:"impressionShare,omitempty"`
	ClickShare      float64 `json:"clickShare,omitempty" yaml:"clickShare,omitempty"`
	Missing         bool    `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Alert is one latest-week alert, deltas pre-rendered ("-50.0%", "n/a")
type Alert struct {
	Keyword     string `json:"keyword" yaml:"keyword"`
	Tag         string `json:"tag" yaml:"tag"`
	VolumeDelta string `json:"volumeDelta" yaml:"volumeDelta"`
	ShareDelta  string `json:"shareDelta" yaml:"shareDelta"`
}

// ArchiveEntry summarizes one archived cycle for the same ASIN
type ArchiveEntry struct {
	ArchiveID  string `json:"archiveId" yaml:"archiveId"`
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
	CycleStart string `json:"cycleStart" yaml:"cycleStart"`
	WeekCount  int    `json:"weekCount" yaml:"weekCount"`
	ArchivedAt string `json:"archivedAt" yaml:"archivedAt"`
}
