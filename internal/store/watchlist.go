package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/sqp"
)

// Watchlist represents one tracking cycle for an ASIN: the locked
// keyword set plus the weeks appended so far. Exactly one watchlist
// may be active per ASIN; archived watchlists are immutable.
type Watchlist struct {
	ID             string     `json:"id"`
	ASIN           string     `json:"asin"`
	Status         string     `json:"status"`
	CycleStartWeek sqp.Week   `json:"cycleStartWeek"`
	WeekCount      int        `json:"weekCount"`
	LastWeek       sqp.Week   `json:"lastWeek,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ArchivedAt     *time.Time `json:"archivedAt,omitempty"`
	ArchiveID      string     `json:"archiveId,omitempty"`
	ArchiveLabel   string     `json:"archiveLabel,omitempty"`
}

// WeekEntry is one appended week within a cycle
type WeekEntry struct {
	Week        sqp.Week  `json:"week"`
	Seq         int       `json:"seq"`
	ImportedAt  time.Time `json:"importedAt"`
	Source      string    `json:"source,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// AppendMeta carries provenance for an appended week
type AppendMeta struct {
	Source      string
	Fingerprint string
}

// AppendResult reports the outcome of a committed week append
type AppendResult struct {
	Week          sqp.Week `json:"week"`
	Seq           int      `json:"seq"`
	Missing       []string `json:"missing,omitempty"`
	CycleComplete bool     `json:"cycleComplete"` // seq reached maxWeeks
	CycleExceeded bool     `json:"cycleExceeded"` // seq passed maxWeeks (soft)
}

// ArchiveInfo summarizes one archived cycle
type ArchiveInfo struct {
	ArchiveID      string    `json:"archiveId"`
	WatchlistID    string    `json:"watchlistId"`
	ASIN           string    `json:"asin"`
	Label          string    `json:"label,omitempty"`
	CycleStartWeek sqp.Week  `json:"cycleStartWeek"`
	WeekCount      int       `json:"weekCount"`
	ArchivedAt     time.Time `json:"archivedAt"`
}

// Initialize creates a new active watchlist for the ASIN with the given
// locked keyword set. The locked set and its order are frozen here for
// the lifetime of the cycle. Fails with ALREADY_INITIALIZED when an
// active watchlist already exists for the ASIN.
func (db *DB) Initialize(asin string, locked []sqp.LockedKeyword, cycleStart sqp.Week) (*Watchlist, error) {
	if asin == "" {
		return nil, sqperrors.NewSqpError(sqperrors.Validation, "asin is required", nil, nil)
	}
	if len(locked) == 0 {
		return nil, sqperrors.NewSqpError(sqperrors.Validation, "locked keyword set is empty", nil, nil)
	}

	existing, err := db.Active(asin)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, sqperrors.NewSqpError(sqperrors.AlreadyInitialized,
			fmt.Sprintf("watchlist %s is already tracking %s (started %s, %d weeks recorded)",
				existing.ID, asin, existing.CycleStartWeek, existing.WeekCount),
			nil, nil)
	}

	wl := &Watchlist{
		ID:             "wl_" + uuid.New().String(),
		ASIN:           asin,
		Status:         "active",
		CycleStartWeek: cycleStart,
		CreatedAt:      time.Now().UTC(),
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO watchlists (id, asin, status, cycle_start_week, week_count, created_at)
			VALUES (?, ?, 'active', ?, 0, ?)
		`, wl.ID, wl.ASIN, wl.CycleStartWeek.String(), wl.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert watchlist: %w", err)
		}

		for i, kw := range locked {
			_, err := tx.Exec(`
				INSERT INTO locked_keywords (watchlist_id, keyword, initial_rank, position)
				VALUES (?, ?, ?, ?)
			`, wl.ID, kw.Keyword, kw.InitialRank, i)
			if err != nil {
				return fmt.Errorf("failed to insert locked keyword %q: %w", kw.Keyword, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logger.Info("Watchlist initialized", map[string]interface{}{
		"watchlist_id": wl.ID,
		"asin":         asin,
		"keywords":     len(locked),
		"cycle_start":  cycleStart.String(),
	})

	return wl, nil
}

// Active returns the active watchlist for the ASIN, or nil when none
// exists. When asin is empty and exactly one active watchlist exists,
// that watchlist is returned.
func (db *DB) Active(asin string) (*Watchlist, error) {
	query := `
		SELECT id, asin, status, cycle_start_week, week_count, created_at,
		       archived_at, archive_id, archive_label
		FROM watchlists
		WHERE status = 'active'
	`
	args := []interface{}{}
	if asin != "" {
		query += " AND asin = ?"
		args = append(args, asin)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active watchlist: %w", err)
	}
	defer rows.Close()

	var matches []*Watchlist
	for rows.Next() {
		wl, err := scanWatchlist(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, wl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		wl := matches[0]
		if err := db.loadLastWeek(wl); err != nil {
			return nil, err
		}
		return wl, nil
	default:
		asins := make([]string, len(matches))
		for i, m := range matches {
			asins[i] = m.ASIN
		}
		return nil, sqperrors.NewSqpError(sqperrors.ProductError,
			"multiple active watchlists; pass --asin to pick one", nil, nil).
			WithDetails(map[string]interface{}{"asins": asins})
	}
}

// Get returns a watchlist by ID regardless of status
func (db *DB) Get(watchlistID string) (*Watchlist, error) {
	rows, err := db.Query(`
		SELECT id, asin, status, cycle_start_week, week_count, created_at,
		       archived_at, archive_id, archive_label
		FROM watchlists
		WHERE id = ? OR archive_id = ?
	`, watchlistID, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	wl, err := scanWatchlist(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := db.loadLastWeek(wl); err != nil {
		return nil, err
	}
	return wl, nil
}

// AppendWeek atomically records one week of metrics for every locked
// keyword of the watchlist. Locked keywords absent from records get the
// absent sentinel. The append is all-or-nothing: on any failure no week
// row and no metric rows are written.
//
// The week must be strictly after the last recorded week; otherwise the
// append fails with OUT_OF_ORDER_WEEK and the store is unchanged.
// maxWeeks is the soft cycle limit: reaching it sets CycleComplete,
// passing it sets CycleExceeded, and the append still commits.
func (db *DB) AppendWeek(wl *Watchlist, week sqp.Week, records map[string]sqp.Record, meta AppendMeta, maxWeeks int) (*AppendResult, error) {
	if wl == nil {
		return nil, sqperrors.NewSqpError(sqperrors.NoActiveWatchlist, "no watchlist to append to", nil, nil)
	}
	if wl.Status != "active" {
		return nil, sqperrors.NewSqpError(sqperrors.Validation,
			fmt.Sprintf("watchlist %s is archived and immutable", wl.ID), nil, nil)
	}

	last, seq, err := db.lastWeek(wl.ID)
	if err != nil {
		return nil, err
	}
	if seq > 0 && !week.After(last) {
		return nil, sqperrors.NewSqpError(sqperrors.OutOfOrderWeek,
			fmt.Sprintf("week %s is not after last recorded week %s", week, last),
			nil, nil).WithDetails(map[string]interface{}{
			"week":     week.String(),
			"lastWeek": last.String(),
		})
	}

	locked, err := db.LockedKeywords(wl.ID)
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, sqperrors.NewSqpError(sqperrors.InternalError,
			fmt.Sprintf("watchlist %s has no locked keywords", wl.ID), nil, nil)
	}

	result := &AppendResult{
		Week: week,
		Seq:  seq + 1,
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO weeks (watchlist_id, week_id, seq, imported_at, source, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?)
		`, wl.ID, week.String(), result.Seq, time.Now().UTC().Format(time.RFC3339),
			nullableString(meta.Source), nullableString(meta.Fingerprint))
		if err != nil {
			return fmt.Errorf("failed to insert week %s: %w", week, err)
		}

		for _, kw := range locked {
			rec, ok := records[kw.Keyword]
			if !ok {
				rec = sqp.AbsentRecord(kw.Keyword, week)
				result.Missing = append(result.Missing, kw.Keyword)
			}
			if err := insertRecord(tx, wl.ID, week, result.Seq, rec); err != nil {
				return err
			}
		}

		_, err = tx.Exec(`UPDATE watchlists SET week_count = ? WHERE id = ?`, result.Seq, wl.ID)
		if err != nil {
			return fmt.Errorf("failed to update week count: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	wl.WeekCount = result.Seq
	wl.LastWeek = week

	if maxWeeks > 0 {
		result.CycleComplete = result.Seq >= maxWeeks
		result.CycleExceeded = result.Seq > maxWeeks
	}

	db.logger.Info("Week appended", map[string]interface{}{
		"watchlist_id": wl.ID,
		"week":         week.String(),
		"seq":          result.Seq,
		"missing":      len(result.Missing),
	})

	return result, nil
}

// insertRecord writes one metric row. Sentinel rows keep rank and the
// share columns NULL so they are distinguishable from true zeros.
func insertRecord(tx *sql.Tx, watchlistID string, week sqp.Week, seq int, rec sqp.Record) error {
	var (
		rank          interface{}
		purchaseShare interface{}
		impShare      interface{}
		clickShare    interface{}
		asinPrice     interface{}
		marketPrice   interface{}
		volume        int
		missing       int
	)
	if rec.Missing {
		missing = 1
	} else {
		rank = rec.Rank
		purchaseShare = rec.PurchaseShare
		impShare = rec.ImpressionShare
		clickShare = rec.ClickShare
		volume = rec.Volume
		if rec.ASINPrice > 0 {
			asinPrice = rec.ASINPrice
		}
		if rec.MarketPrice > 0 {
			marketPrice = rec.MarketPrice
		}
	}

	_, err := tx.Exec(`
		INSERT INTO metric_records (
			watchlist_id, keyword, week_id, seq, rank, volume,
			purchase_share, impression_share, click_share,
			asin_price, market_price, missing
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, watchlistID, rec.Keyword, week.String(), seq, rank, volume,
		purchaseShare, impShare, clickShare, asinPrice, marketPrice, missing)
	if err != nil {
		return fmt.Errorf("failed to insert record for %q week %s: %w", rec.Keyword, week, err)
	}
	return nil
}

// LockedKeywords returns the frozen keyword set in selection order
func (db *DB) LockedKeywords(watchlistID string) ([]sqp.LockedKeyword, error) {
	rows, err := db.Query(`
		SELECT keyword, initial_rank
		FROM locked_keywords
		WHERE watchlist_id = ?
		ORDER BY position ASC
	`, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locked keywords: %w", err)
	}
	defer rows.Close()

	var locked []sqp.LockedKeyword
	for rows.Next() {
		var kw sqp.LockedKeyword
		if err := rows.Scan(&kw.Keyword, &kw.InitialRank); err != nil {
			return nil, err
		}
		locked = append(locked, kw)
	}

	return locked, rows.Err()
}

// Weeks returns the appended weeks of a watchlist in cycle order
func (db *DB) Weeks(watchlistID string) ([]WeekEntry, error) {
	rows, err := db.Query(`
		SELECT week_id, seq, imported_at, COALESCE(source, ''), COALESCE(fingerprint, '')
		FROM weeks
		WHERE watchlist_id = ?
		ORDER BY seq ASC
	`, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks: %w", err)
	}
	defer rows.Close()

	var weeks []WeekEntry
	for rows.Next() {
		var (
			entry      WeekEntry
			weekID     string
			importedAt string
		)
		if err := rows.Scan(&weekID, &entry.Seq, &importedAt, &entry.Source, &entry.Fingerprint); err != nil {
			return nil, err
		}
		if entry.Week, err = sqp.ParseWeek(weekID); err != nil {
			return nil, fmt.Errorf("corrupt week id %q: %w", weekID, err)
		}
		if entry.ImportedAt, err = time.Parse(time.RFC3339, importedAt); err != nil {
			return nil, fmt.Errorf("corrupt imported_at %q: %w", importedAt, err)
		}
		weeks = append(weeks, entry)
	}

	return weeks, rows.Err()
}

// HasFingerprint reports whether a week with the given import
// fingerprint was already appended to the watchlist
func (db *DB) HasFingerprint(watchlistID, fingerprint string) (bool, string, error) {
	if fingerprint == "" {
		return false, "", nil
	}
	var weekID string
	err := db.QueryRow(`
		SELECT week_id FROM weeks
		WHERE watchlist_id = ? AND fingerprint = ?
	`, watchlistID, fingerprint).Scan(&weekID)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, weekID, nil
}

// History returns every recorded week for one keyword in append order.
// Each call re-reads the store, so the sequence is restartable and
// reflects later appends.
func (db *DB) History(watchlistID, keyword string) ([]sqp.Record, error) {
	rows, err := db.Query(`
		SELECT keyword, week_id, rank, volume, purchase_share,
		       impression_share, click_share, asin_price, market_price, missing
		FROM metric_records
		WHERE watchlist_id = ? AND keyword = ?
		ORDER BY seq ASC
	`, watchlistID, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// WeekRecords returns every keyword's record for one appended week
func (db *DB) WeekRecords(watchlistID string, week sqp.Week) (map[string]sqp.Record, error) {
	rows, err := db.Query(`
		SELECT keyword, week_id, rank, volume, purchase_share,
		       impression_share, click_share, asin_price, market_price, missing
		FROM metric_records
		WHERE watchlist_id = ? AND week_id = ?
	`, watchlistID, week.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query week records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	byKeyword := make(map[string]sqp.Record, len(records))
	for _, rec := range records {
		byKeyword[rec.Keyword] = rec
	}
	return byKeyword, nil
}

// RecentRecords returns the n most recent records for a keyword,
// oldest first
func (db *DB) RecentRecords(watchlistID, keyword string, n int) ([]sqp.Record, error) {
	rows, err := db.Query(`
		SELECT keyword, week_id, rank, volume, purchase_share,
		       impression_share, click_share, asin_price, market_price, missing
		FROM metric_records
		WHERE watchlist_id = ? AND keyword = ?
		ORDER BY seq DESC
		LIMIT ?
	`, watchlistID, keyword, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Archive closes the watchlist: marks it archived, stamps the archive
// time and label, and assigns a fresh archive ID. Archived data stays
// queryable but immutable.
func (db *DB) Archive(watchlistID, label string) (string, error) {
	archiveID := "arch_" + uuid.New().String()
	archivedAt := time.Now().UTC().Format(time.RFC3339)

	err := db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE watchlists
			SET status = 'archived', archived_at = ?, archive_id = ?, archive_label = ?
			WHERE id = ? AND status = 'active'
		`, archivedAt, archiveID, nullableString(label), watchlistID)
		if err != nil {
			return fmt.Errorf("failed to archive watchlist: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sqperrors.NewSqpError(sqperrors.NoActiveWatchlist,
				fmt.Sprintf("watchlist %s is not active", watchlistID), nil, nil)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	db.logger.Info("Watchlist archived", map[string]interface{}{
		"watchlist_id": watchlistID,
		"archive_id":   archiveID,
		"label":        label,
	})

	return archiveID, nil
}

// Archives lists archived cycles, newest first. An empty asin lists
// archives for every ASIN.
func (db *DB) Archives(asin string) ([]ArchiveInfo, error) {
	query := `
		SELECT archive_id, id, asin, COALESCE(archive_label, ''),
		       cycle_start_week, week_count, archived_at
		FROM watchlists
		WHERE status = 'archived'
	`
	args := []interface{}{}
	if asin != "" {
		query += " AND asin = ?"
		args = append(args, asin)
	}
	query += " ORDER BY archived_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	var archives []ArchiveInfo
	for rows.Next() {
		var (
			info       ArchiveInfo
			cycleStart string
			archivedAt string
		)
		if err := rows.Scan(&info.ArchiveID, &info.WatchlistID, &info.ASIN,
			&info.Label, &cycleStart, &info.WeekCount, &archivedAt); err != nil {
			return nil, err
		}
		if info.CycleStartWeek, err = sqp.ParseWeek(cycleStart); err != nil {
			return nil, fmt.Errorf("corrupt cycle start week %q: %w", cycleStart, err)
		}
		if info.ArchivedAt, err = time.Parse(time.RFC3339, archivedAt); err != nil {
			return nil, fmt.Errorf("corrupt archived_at %q: %w", archivedAt, err)
		}
		archives = append(archives, info)
	}

	return archives, rows.Err()
}

// lastWeek returns the most recent appended week and its seq, or a zero
// week and 0 when the watchlist has no weeks yet
func (db *DB) lastWeek(watchlistID string) (sqp.Week, int, error) {
	var (
		weekID string
		seq    int
	)
	err := db.QueryRow(`
		SELECT week_id, seq FROM weeks
		WHERE watchlist_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, watchlistID).Scan(&weekID, &seq)
	if err == sql.ErrNoRows {
		return sqp.Week{}, 0, nil
	}
	if err != nil {
		return sqp.Week{}, 0, err
	}
	week, err := sqp.ParseWeek(weekID)
	if err != nil {
		return sqp.Week{}, 0, fmt.Errorf("corrupt week id %q: %w", weekID, err)
	}
	return week, seq, nil
}

func (db *DB) loadLastWeek(wl *Watchlist) error {
	last, _, err := db.lastWeek(wl.ID)
	if err != nil {
		return err
	}
	wl.LastWeek = last
	return nil
}

// scanWatchlist scans one watchlists row
func scanWatchlist(rows *sql.Rows) (*Watchlist, error) {
	var (
		wl           Watchlist
		cycleStart   string
		createdAt    string
		archivedAt   sql.NullString
		archiveID    sql.NullString
		archiveLabel sql.NullString
	)
	if err := rows.Scan(&wl.ID, &wl.ASIN, &wl.Status, &cycleStart, &wl.WeekCount,
		&createdAt, &archivedAt, &archiveID, &archiveLabel); err != nil {
		return nil, err
	}

	var err error
	if wl.CycleStartWeek, err = sqp.ParseWeek(cycleStart); err != nil {
		return nil, fmt.Errorf("corrupt cycle start week %q: %w", cycleStart, err)
	}
	if wl.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	if archivedAt.Valid {
		t, err := time.Parse(time.RFC3339, archivedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt archived_at %q: %w", archivedAt.String, err)
		}
		wl.ArchivedAt = &t
	}
	wl.ArchiveID = archiveID.String
	wl.ArchiveLabel = archiveLabel.String

	return &wl, nil
}

// scanRecords scans metric_records rows ordered by the caller's query
func scanRecords(rows *sql.Rows) ([]sqp.Record, error) {
	var records []sqp.Record
	for rows.Next() {
		var (
			rec           sqp.Record
			weekID        string
			rank          sql.NullInt64
			purchaseShare sql.NullFloat64
			impShare      sql.NullFloat64
			clickShare    sql.NullFloat64
			asinPrice     sql.NullFloat64
			marketPrice   sql.NullFloat64
			missing       int
		)
		if err := rows.Scan(&rec.Keyword, &weekID, &rank, &rec.Volume, &purchaseShare,
			&impShare, &clickShare, &asinPrice, &marketPrice, &missing); err != nil {
			return nil, err
		}
		week, err := sqp.ParseWeek(weekID)
		if err != nil {
			return nil, fmt.Errorf("corrupt week id %q: %w", weekID, err)
		}
		rec.Week = week
		rec.Missing = missing == 1
		if !rec.Missing {
			rec.Rank = int(rank.Int64)
			rec.PurchaseShare = purchaseShare.Float64
			rec.ImpressionShare = impShare.Float64
			rec.ClickShare = clickShare.Float64
			rec.ASINPrice = asinPrice.Float64
			rec.MarketPrice = marketPrice.Float64
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// nullableString maps "" to NULL
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
