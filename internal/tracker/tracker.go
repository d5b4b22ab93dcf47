// Package tracker orchestrates the weekly tracking lifecycle: first-time
// cycle setup with top-N selection, ordered week appends with alert
// classification, dry-run previews, and the reset/archival flow.
package tracker

import (
	"fmt"
	"sort"
	"strings"

	"sqptrack/internal/config"
	"sqptrack/internal/delta"
	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
	"sqptrack/internal/store"
)

// Tracker coordinates imports against the watchlist store
type Tracker struct {
	db     *store.DB
	cfg    config.TrackingConfig
	logger *logging.Logger
}

// New creates a tracker bound to an open store
func New(db *store.DB, cfg config.TrackingConfig, logger *logging.Logger) *Tracker {
	return &Tracker{db: db, cfg: cfg, logger: logger}
}

// AlertRow is one locked keyword's state after an appended week
type AlertRow struct {
	Keyword       string      `json:"keyword"`
	InitialRank   int         `json:"initialRank"`
	Rank          int         `json:"rank,omitempty"`
	Volume        int         `json:"volume"`
	PurchaseShare float64     `json:"purchaseShare"`
	Missing       bool        `json:"missing"`
	Tag           delta.Tag   `json:"tag"`
	VolumeDelta   delta.Value `json:"volumeDelta"`
	ShareDelta    delta.Value `json:"shareDelta"`
}

// AlertView is the outcome of one weekly update: the committed week
// plus a classified row per locked keyword, in locked order.
type AlertView struct {
	ASIN          string     `json:"asin"`
	WatchlistID   string     `json:"watchlistId"`
	Week          sqp.Week   `json:"week"`
	Seq           int        `json:"seq"`
	MaxWeeks      int        `json:"maxWeeks"`
	Initialized   bool       `json:"initialized"` // this run created the cycle
	CycleComplete bool       `json:"cycleComplete"`
	CycleExceeded bool       `json:"cycleExceeded"`
	DuplicateRows int        `json:"duplicateRows,omitempty"`
	IgnoredRows   int        `json:"ignoredRows,omitempty"` // outside the locked set
	Rows          []AlertRow `json:"rows"`
}

// Alerts returns the rows that carry an alert tag
func (v *AlertView) Alerts() []AlertRow {
	var out []AlertRow
	for _, r := range v.Rows {
		if r.Tag != delta.None {
			out = append(out, r)
		}
	}
	return out
}

// ResetResult reports an archive-and-restart
type ResetResult struct {
	ASIN          string              `json:"asin"`
	ArchiveID     string              `json:"archiveId"`
	ArchiveLabel  string              `json:"archiveLabel"`
	OldWeekCount  int                 `json:"oldWeekCount"`
	NewWatchlist  string              `json:"newWatchlistId"`
	Week          sqp.Week            `json:"week"`
	Locked        []sqp.LockedKeyword `json:"locked"`
	DuplicateRows int                 `json:"duplicateRows,omitempty"`
}

// Preview describes what a weekly update would do, without doing it
type Preview struct {
	ASIN          string              `json:"asin"`
	Week          sqp.Week            `json:"week"`
	FirstImport   bool                `json:"firstImport"`
	WouldLock     []sqp.LockedKeyword `json:"wouldLock,omitempty"`
	NextSeq       int                 `json:"nextSeq"`
	OutOfOrder    bool                `json:"outOfOrder"`
	LastWeek      string              `json:"lastWeek,omitempty"`
	Missing       []string            `json:"missing,omitempty"`
	DuplicateRows int                 `json:"duplicateRows,omitempty"`
	IgnoredRows   int                 `json:"ignoredRows,omitempty"`
}

// Status is the active cycle's summary for an ASIN
type Status struct {
	Watchlist *store.Watchlist    `json:"watchlist"`
	Locked    []sqp.LockedKeyword `json:"locked"`
	Weeks     []store.WeekEntry   `json:"weeks"`
	MaxWeeks  int                 `json:"maxWeeks"`
}

// SelectTopN picks the n most important keywords from an import: rank
// ascending, ties broken by keyword order so selection is deterministic.
func SelectTopN(records []sqp.Record, n int) []sqp.LockedKeyword {
	sorted := make([]sqp.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].Keyword < sorted[j].Keyword
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	locked := make([]sqp.LockedKeyword, 0, n)
	for _, rec := range sorted[:n] {
		locked = append(locked, sqp.LockedKeyword{Keyword: rec.Keyword, InitialRank: rec.Rank})
	}
	return locked
}

// RunWeeklyUpdate ingests one week of records for the ASIN. The first
// import of an ASIN locks the top-N keyword set and starts the cycle;
// every later import appends in strict week order. Duplicate keyword
// rows keep the first occurrence and are logged, never fatal. The
// returned view classifies every locked keyword against the prior week.
func (t *Tracker) RunWeeklyUpdate(asin string, week sqp.Week, records []sqp.Record, meta store.AppendMeta) (*AlertView, error) {
	clean, dupes := t.dedup(week, records)

	wl, err := t.db.Active(asin)
	if err != nil {
		return nil, err
	}

	initialized := false
	if wl == nil {
		locked := SelectTopN(clean, t.cfg.TopN)
		if len(locked) == 0 {
			return nil, sqperrors.NewSqpError(
				sqperrors.ImportError,
				"import contains no usable keyword rows",
				nil, nil,
			)
		}
		wl, err = t.db.Initialize(asin, locked, week)
		if err != nil {
			return nil, err
		}
		initialized = true
		t.logger.Info("watchlist initialized", map[string]interface{}{
			"asin":    asin,
			"week":    week.String(),
			"keyword_count": len(locked),
		})
	} else if meta.Fingerprint != "" {
		seen, priorWeek, ferr := t.db.HasFingerprint(wl.ID, meta.Fingerprint)
		if ferr != nil {
			return nil, ferr
		}
		if seen {
			return nil, sqperrors.NewSqpError(
				sqperrors.ImportError,
				fmt.Sprintf("this file was already imported as week %s", priorWeek),
				nil,
				[]sqperrors.FixAction{
					{Type: sqperrors.RunCommand, Description: "Review the recorded weeks", Command: "sqptrack status"},
				},
			)
		}
	}

	byKeyword := recordMap(clean)
	res, err := t.db.AppendWeek(wl, week, byKeyword, meta, t.cfg.MaxCycleWeeks)
	if err != nil {
		return nil, err
	}

	view, err := t.buildView(wl, res)
	if err != nil {
		return nil, err
	}
	view.Initialized = initialized
	view.DuplicateRows = dupes
	view.IgnoredRows = t.countIgnored(view, byKeyword)

	if res.CycleComplete {
		t.logger.Info("tracking cycle complete", map[string]interface{}{
			"asin": asin, "weeks": res.Seq,
		})
	}
	if res.CycleExceeded {
		t.logger.Warn("tracking cycle exceeded, consider a reset", map[string]interface{}{
			"asin": asin, "weeks": res.Seq, "max_weeks": t.cfg.MaxCycleWeeks,
		})
	}
	return view, nil
}

// RunReset archives the active cycle and starts a fresh one from the
// given import: re-selected top-N lock, week 1 = the import's week.
// The archive keeps every record of the old cycle immutable.
func (t *Tracker) RunReset(asin string, week sqp.Week, records []sqp.Record, meta store.AppendMeta) (*ResetResult, error) {
	wl, err := t.db.Active(asin)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.NoActiveWatchlist,
			fmt.Sprintf("no active watchlist to reset for ASIN %q", asin),
			nil, nil,
		)
	}

	clean, dupes := t.dedup(week, records)
	locked := SelectTopN(clean, t.cfg.TopN)
	if len(locked) == 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			"import contains no usable keyword rows",
			nil, nil,
		)
	}

	archiveID, err := t.db.Archive(wl.ID, week.String())
	if err != nil {
		return nil, err
	}
	t.logger.Info("cycle archived", map[string]interface{}{
		"asin": asin, "archive_id": archiveID, "weeks": wl.WeekCount,
	})

	fresh, err := t.db.Initialize(asin, locked, week)
	if err != nil {
		return nil, err
	}
	if _, err := t.db.AppendWeek(fresh, week, recordMap(clean), meta, t.cfg.MaxCycleWeeks); err != nil {
		return nil, err
	}

	return &ResetResult{
		ASIN:          asin,
		ArchiveID:     archiveID,
		ArchiveLabel:  week.String(),
		OldWeekCount:  wl.WeekCount,
		NewWatchlist:  fresh.ID,
		Week:          week,
		Locked:        locked,
		DuplicateRows: dupes,
	}, nil
}

// PreviewUpdate reports what RunWeeklyUpdate would do with this import,
// without touching the store.
func (t *Tracker) PreviewUpdate(asin string, week sqp.Week, records []sqp.Record) (*Preview, error) {
	clean, dupes := t.dedup(week, records)
	p := &Preview{ASIN: asin, Week: week, DuplicateRows: dupes}

	wl, err := t.db.Active(asin)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		p.FirstImport = true
		p.WouldLock = SelectTopN(clean, t.cfg.TopN)
		p.NextSeq = 1
		return p, nil
	}

	p.NextSeq = wl.WeekCount + 1
	if !wl.LastWeek.IsZero() {
		p.LastWeek = wl.LastWeek.String()
		p.OutOfOrder = !week.After(wl.LastWeek)
	}

	locked, err := t.db.LockedKeywords(wl.ID)
	if err != nil {
		return nil, err
	}
	imported := make(map[string]bool, len(clean))
	for _, rec := range clean {
		imported[rec.Keyword] = true
	}
	lockedSet := make(map[string]bool, len(locked))
	for _, lk := range locked {
		lockedSet[lk.Keyword] = true
		if !imported[lk.Keyword] {
			p.Missing = append(p.Missing, lk.Keyword)
		}
	}
	for kw := range imported {
		if !lockedSet[kw] {
			p.IgnoredRows++
		}
	}
	return p, nil
}

// Status returns the active cycle for the ASIN, or NO_ACTIVE_WATCHLIST
func (t *Tracker) Status(asin string) (*Status, error) {
	wl, err := t.requireActive(asin)
	if err != nil {
		return nil, err
	}
	locked, err := t.db.LockedKeywords(wl.ID)
	if err != nil {
		return nil, err
	}
	weeks, err := t.db.Weeks(wl.ID)
	if err != nil {
		return nil, err
	}
	return &Status{Watchlist: wl, Locked: locked, Weeks: weeks, MaxWeeks: t.cfg.MaxCycleWeeks}, nil
}

// History returns every recorded week for one locked keyword, oldest
// first, absent weeks included as sentinels.
func (t *Tracker) History(asin, keyword string) (*store.Watchlist, []sqp.Record, error) {
	wl, err := t.requireActive(asin)
	if err != nil {
		return nil, nil, err
	}
	kw := sqp.NormalizeKeyword(keyword)
	locked, err := t.db.LockedKeywords(wl.ID)
	if err != nil {
		return nil, nil, err
	}
	found := false
	names := make([]string, 0, len(locked))
	for _, lk := range locked {
		names = append(names, lk.Keyword)
		if lk.Keyword == kw {
			found = true
		}
	}
	if !found {
		return nil, nil, sqperrors.NewSqpError(
			sqperrors.Validation,
			fmt.Sprintf("keyword %q is not in the locked set", kw),
			nil, nil,
		).WithDetails(map[string]interface{}{"locked": strings.Join(names, ", ")})
	}
	history, err := t.db.History(wl.ID, kw)
	if err != nil {
		return nil, nil, err
	}
	return wl, history, nil
}

// LatestView rebuilds the alert view for the most recent recorded week
func (t *Tracker) LatestView(asin string) (*AlertView, error) {
	wl, err := t.requireActive(asin)
	if err != nil {
		return nil, err
	}
	if wl.WeekCount == 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.NoActiveWatchlist,
			fmt.Sprintf("watchlist for ASIN %q has no recorded weeks", wl.ASIN),
			nil, nil,
		)
	}
	res := &store.AppendResult{
		Week:          wl.LastWeek,
		Seq:           wl.WeekCount,
		CycleComplete: wl.WeekCount == t.cfg.MaxCycleWeeks,
		CycleExceeded: wl.WeekCount > t.cfg.MaxCycleWeeks,
	}
	return t.buildView(wl, res)
}

// DB exposes the underlying store for read-side consumers
func (t *Tracker) DB() *store.DB {
	return t.db
}

// Thresholds returns the configured alert trigger levels
func (t *Tracker) Thresholds() delta.Thresholds {
	return delta.Thresholds{
		VolumeDropPct:   t.cfg.VolumeDropPct,
		PurchaseDropPts: t.cfg.PurchaseDropPts,
	}
}

func (t *Tracker) requireActive(asin string) (*store.Watchlist, error) {
	wl, err := t.db.Active(asin)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		label := asin
		if label == "" {
			label = "any ASIN"
		}
		return nil, sqperrors.NewSqpError(
			sqperrors.NoActiveWatchlist,
			fmt.Sprintf("no active watchlist for %s", label),
			nil, nil,
		)
	}
	return wl, nil
}

// dedup normalizes keywords and keeps the first row per keyword,
// logging a warning for every duplicate dropped.
func (t *Tracker) dedup(week sqp.Week, records []sqp.Record) ([]sqp.Record, int) {
	seen := make(map[string]bool, len(records))
	clean := make([]sqp.Record, 0, len(records))
	dupes := 0
	for _, rec := range records {
		kw := sqp.NormalizeKeyword(rec.Keyword)
		if kw == "" {
			continue
		}
		if seen[kw] {
			dupes++
			t.logger.Warn("duplicate keyword row dropped", map[string]interface{}{
				"keyword": kw,
				"week":    week.String(),
			})
			continue
		}
		seen[kw] = true
		rec.Keyword = kw
		rec.Week = week
		clean = append(clean, rec)
	}
	return clean, dupes
}

// buildView classifies every locked keyword for the week in res against
// its previous recorded week.
func (t *Tracker) buildView(wl *store.Watchlist, res *store.AppendResult) (*AlertView, error) {
	locked, err := t.db.LockedKeywords(wl.ID)
	if err != nil {
		return nil, err
	}
	th := t.Thresholds()

	view := &AlertView{
		ASIN:          wl.ASIN,
		WatchlistID:   wl.ID,
		Week:          res.Week,
		Seq:           res.Seq,
		MaxWeeks:      t.cfg.MaxCycleWeeks,
		CycleComplete: res.CycleComplete,
		CycleExceeded: res.CycleExceeded,
		Rows:          make([]AlertRow, 0, len(locked)),
	}

	for _, lk := range locked {
		recent, err := t.db.RecentRecords(wl.ID, lk.Keyword, 2)
		if err != nil {
			return nil, err
		}
		if len(recent) == 0 {
			continue
		}
		cur := recent[len(recent)-1]
		var prev *sqp.Record
		if len(recent) == 2 {
			prev = &recent[0]
		}
		d := delta.Compute(prev, cur, th)

		row := AlertRow{
			Keyword:       lk.Keyword,
			InitialRank:   lk.InitialRank,
			Volume:        cur.Volume,
			PurchaseShare: cur.PurchaseShare,
			Missing:       cur.Missing,
			Tag:           d.Tag,
			VolumeDelta:   d.Volume,
			ShareDelta:    d.Share,
		}
		if !cur.Missing {
			row.Rank = cur.Rank
		}
		view.Rows = append(view.Rows, row)
	}
	return view, nil
}

func (t *Tracker) countIgnored(view *AlertView, imported map[string]sqp.Record) int {
	lockedSet := make(map[string]bool, len(view.Rows))
	for _, r := range view.Rows {
		lockedSet[r.Keyword] = true
	}
	ignored := 0
	for kw := range imported {
		if !lockedSet[kw] {
			ignored++
		}
	}
	return ignored
}

func recordMap(records []sqp.Record) map[string]sqp.Record {
	m := make(map[string]sqp.Record, len(records))
	for _, rec := range records {
		m[rec.Keyword] = rec
	}
	return m
}
