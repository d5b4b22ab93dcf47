package store

import (
	"os"
	"testing"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "sqptrack-store-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := logging.NewLogger(logging.Config{
		Level: logging.ErrorLevel,
	})

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testRecord(keyword string, week sqp.Week, rank, volume int, purchaseShare float64) sqp.Record {
	return sqp.Record{
		Keyword:       keyword,
		Week:          week,
		Rank:          rank,
		Volume:        volume,
		PurchaseShare: purchaseShare,
	}
}

func TestInitializeAndActive(t *testing.T) {
	db := openTestDB(t)

	locked := []sqp.LockedKeyword{
		{Keyword: "yoga mat", InitialRank: 1},
		{Keyword: "exercise mat", InitialRank: 2},
	}

	wl, err := db.Initialize("B0TEST12345", locked, sqp.Week{Year: 2025, Num: 14})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if wl.ID == "" || wl.Status != "active" {
		t.Errorf("unexpected watchlist: %+v", wl)
	}

	// Second initialize for the same ASIN must fail
	_, err = db.Initialize("B0TEST12345", locked, sqp.Week{Year: 2025, Num: 15})
	if !sqperrors.IsCode(err, sqperrors.AlreadyInitialized) {
		t.Errorf("expected ALREADY_INITIALIZED, got %v", err)
	}

	// Active lookup by ASIN and unscoped
	active, err := db.Active("B0TEST12345")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active == nil || active.ID != wl.ID {
		t.Errorf("expected active watchlist %s, got %+v", wl.ID, active)
	}

	active, err = db.Active("")
	if err != nil {
		t.Fatalf("unscoped Active failed: %v", err)
	}
	if active == nil || active.ID != wl.ID {
		t.Errorf("expected single active watchlist, got %+v", active)
	}

	// Unknown ASIN has no active watchlist
	active, err = db.Active("B0UNKNOWN99")
	if err != nil {
		t.Fatalf("Active for unknown ASIN failed: %v", err)
	}
	if active != nil {
		t.Errorf("expected nil for unknown ASIN, got %+v", active)
	}

	// Locked set comes back in selection order
	got, err := db.LockedKeywords(wl.ID)
	if err != nil {
		t.Fatalf("LockedKeywords failed: %v", err)
	}
	if len(got) != 2 || got[0].Keyword != "yoga mat" || got[1].Keyword != "exercise mat" {
		t.Errorf("unexpected locked keywords: %+v", got)
	}
}

func TestAppendWeek(t *testing.T) {
	db := openTestDB(t)

	week1 := sqp.Week{Year: 2025, Num: 14}
	week2 := sqp.Week{Year: 2025, Num: 15}

	locked := []sqp.LockedKeyword{
		{Keyword: "yoga mat", InitialRank: 1},
		{Keyword: "exercise mat", InitialRank: 2},
		{Keyword: "pilates mat", InitialRank: 3},
	}
	wl, err := db.Initialize("B0TEST12345", locked, week1)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	records := map[string]sqp.Record{
		"yoga mat":     testRecord("yoga mat", week1, 1, 12000, 8.5),
		"exercise mat": testRecord("exercise mat", week1, 2, 9500, 4.2),
		"pilates mat":  testRecord("pilates mat", week1, 3, 3100, 2.0),
	}

	res, err := db.AppendWeek(wl, week1, records, AppendMeta{Source: "csv:test.csv"}, 12)
	if err != nil {
		t.Fatalf("AppendWeek failed: %v", err)
	}
	if res.Seq != 1 {
		t.Errorf("expected seq 1, got %d", res.Seq)
	}
	if len(res.Missing) != 0 {
		t.Errorf("expected no missing keywords, got %v", res.Missing)
	}

	// Week 2: pilates mat fell out of the report
	records2 := map[string]sqp.Record{
		"yoga mat":     testRecord("yoga mat", week2, 1, 11000, 9.0),
		"exercise mat": testRecord("exercise mat", week2, 3, 6000, 4.0),
	}
	res, err = db.AppendWeek(wl, week2, records2, AppendMeta{}, 12)
	if err != nil {
		t.Fatalf("second AppendWeek failed: %v", err)
	}
	if res.Seq != 2 {
		t.Errorf("expected seq 2, got %d", res.Seq)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "pilates mat" {
		t.Errorf("expected pilates mat missing, got %v", res.Missing)
	}

	// The sentinel row is distinguishable from a true zero
	history, err := db.History(wl.ID, "pilates mat")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	if history[0].Missing || history[0].Volume != 3100 {
		t.Errorf("unexpected week 1 record: %+v", history[0])
	}
	if !history[1].Missing || history[1].Volume != 0 {
		t.Errorf("expected week 2 sentinel, got %+v", history[1])
	}

	// Week count tracked on the watchlist row
	reloaded, err := db.Active("B0TEST12345")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if reloaded.WeekCount != 2 {
		t.Errorf("expected week count 2, got %d", reloaded.WeekCount)
	}
	if !reloaded.LastWeek.Equal(week2) {
		t.Errorf("expected last week %s, got %s", week2, reloaded.LastWeek)
	}
}

func TestAppendWeekOutOfOrder(t *testing.T) {
	db := openTestDB(t)

	week5 := sqp.Week{Year: 2025, Num: 5}
	locked := []sqp.LockedKeyword{{Keyword: "yoga mat", InitialRank: 1}}
	wl, err := db.Initialize("B0TEST12345", locked, week5)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	records := map[string]sqp.Record{
		"yoga mat": testRecord("yoga mat", week5, 1, 1000, 5.0),
	}
	if _, err := db.AppendWeek(wl, week5, records, AppendMeta{}, 12); err != nil {
		t.Fatalf("AppendWeek failed: %v", err)
	}

	cases := []sqp.Week{
		{Year: 2025, Num: 5}, // duplicate
		{Year: 2025, Num: 4}, // earlier
		{Year: 2024, Num: 52},
	}
	for _, week := range cases {
		_, err := db.AppendWeek(wl, week, records, AppendMeta{}, 12)
		if !sqperrors.IsCode(err, sqperrors.OutOfOrderWeek) {
			t.Errorf("week %s: expected OUT_OF_ORDER_WEEK, got %v", week, err)
		}
	}

	// A failed append must not leave partial rows behind
	weeks, err := db.Weeks(wl.ID)
	if err != nil {
		t.Fatalf("Weeks failed: %v", err)
	}
	if len(weeks) != 1 {
		t.Errorf("expected 1 week after rejected appends, got %d", len(weeks))
	}

	// Year boundary: next ISO year is a later week
	week1 := sqp.Week{Year: 2026, Num: 1}
	records1 := map[string]sqp.Record{
		"yoga mat": testRecord("yoga mat", week1, 1, 900, 5.5),
	}
	if _, err := db.AppendWeek(wl, week1, records1, AppendMeta{}, 12); err != nil {
		t.Errorf("year-boundary append failed: %v", err)
	}
}

func TestAppendWeekCycleLimit(t *testing.T) {
	db := openTestDB(t)

	locked := []sqp.LockedKeyword{{Keyword: "yoga mat", InitialRank: 1}}
	wl, err := db.Initialize("B0TEST12345", locked, sqp.Week{Year: 2025, Num: 1})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	maxWeeks := 3
	var last *AppendResult
	for num := 1; num <= 4; num++ {
		week := sqp.Week{Year: 2025, Num: num}
		records := map[string]sqp.Record{
			"yoga mat": testRecord("yoga mat", week, 1, 1000, 5.0),
		}
		last, err = db.AppendWeek(wl, week, records, AppendMeta{}, maxWeeks)
		if err != nil {
			t.Fatalf("append week %d failed: %v", num, err)
		}

		switch num {
		case 3:
			if !last.CycleComplete || last.CycleExceeded {
				t.Errorf("week 3: expected complete, not exceeded: %+v", last)
			}
		case 4:
			if !last.CycleExceeded {
				t.Errorf("week 4: expected exceeded: %+v", last)
			}
		default:
			if last.CycleComplete || last.CycleExceeded {
				t.Errorf("week %d: expected neither complete nor exceeded: %+v", num, last)
			}
		}
	}

	// The over-limit append still committed
	if last.Seq != 4 {
		t.Errorf("expected seq 4, got %d", last.Seq)
	}
}

func TestArchiveAndArchives(t *testing.T) {
	db := openTestDB(t)

	week := sqp.Week{Year: 2025, Num: 10}
	locked := []sqp.LockedKeyword{{Keyword: "yoga mat", InitialRank: 1}}
	wl, err := db.Initialize("B0TEST12345", locked, week)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	records := map[string]sqp.Record{
		"yoga mat": testRecord("yoga mat", week, 1, 1000, 5.0),
	}
	if _, err := db.AppendWeek(wl, week, records, AppendMeta{}, 12); err != nil {
		t.Fatalf("AppendWeek failed: %v", err)
	}

	archiveID, err := db.Archive(wl.ID, "2025-W10")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if archiveID == "" || archiveID[:5] != "arch_" {
		t.Errorf("unexpected archive ID %q", archiveID)
	}

	// No longer active
	active, err := db.Active("B0TEST12345")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active watchlist after archive, got %+v", active)
	}

	// Archiving twice fails
	if _, err := db.Archive(wl.ID, ""); !sqperrors.IsCode(err, sqperrors.NoActiveWatchlist) {
		t.Errorf("expected NO_ACTIVE_WATCHLIST on double archive, got %v", err)
	}

	// Archived data stays queryable
	history, err := db.History(wl.ID, "yoga mat")
	if err != nil {
		t.Fatalf("History after archive failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected archived history to survive, got %d records", len(history))
	}

	// A second cycle can start and later archive under a distinct ID
	wl2, err := db.Initialize("B0TEST12345", locked, sqp.Week{Year: 2025, Num: 11})
	if err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	archiveID2, err := db.Archive(wl2.ID, "2025-W11")
	if err != nil {
		t.Fatalf("second Archive failed: %v", err)
	}
	if archiveID2 == archiveID {
		t.Error("expected distinct archive IDs")
	}

	archives, err := db.Archives("B0TEST12345")
	if err != nil {
		t.Fatalf("Archives failed: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("expected 2 archives, got %d", len(archives))
	}
	if archives[0].ArchiveID != archiveID2 {
		t.Errorf("expected newest archive first, got %+v", archives[0])
	}

	// Lookup by archive ID
	got, err := db.Get(archiveID)
	if err != nil {
		t.Fatalf("Get by archive ID failed: %v", err)
	}
	if got == nil || got.ID != wl.ID {
		t.Errorf("expected watchlist %s, got %+v", wl.ID, got)
	}
}

func TestFingerprintDedup(t *testing.T) {
	db := openTestDB(t)

	week := sqp.Week{Year: 2025, Num: 20}
	locked := []sqp.LockedKeyword{{Keyword: "yoga mat", InitialRank: 1}}
	wl, err := db.Initialize("B0TEST12345", locked, week)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	records := map[string]sqp.Record{
		"yoga mat": testRecord("yoga mat", week, 1, 1000, 5.0),
	}
	meta := AppendMeta{Source: "csv:export.csv", Fingerprint: "abc123"}
	if _, err := db.AppendWeek(wl, week, records, meta, 12); err != nil {
		t.Fatalf("AppendWeek failed: %v", err)
	}

	seen, weekID, err := db.HasFingerprint(wl.ID, "abc123")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if !seen || weekID != "2025-W20" {
		t.Errorf("expected fingerprint hit on 2025-W20, got seen=%v week=%q", seen, weekID)
	}

	seen, _, err = db.HasFingerprint(wl.ID, "other")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if seen {
		t.Error("expected no hit for unknown fingerprint")
	}
}
