package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"sqptrack/internal/config"
	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
	"sqptrack/internal/store"
	"sqptrack/internal/tracker"
)

// newTestExporter seeds a two-week cycle: three keywords locked in week
// 2025-W14, then a week where "mg scoop" halves in volume and
// "powder scoop" goes missing.
func newTestExporter(t *testing.T) *Exporter {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "sqptrack-export-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := logging.NewLogger(logging.Config{
		Level: logging.ErrorLevel,
	})

	db, err := store.Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	trk := tracker.New(db, config.DefaultConfig().Tracking, logger)

	week1 := []sqp.Record{
		{Keyword: "mg scoop", Rank: 1, Volume: 500, PurchaseShare: 30},
		{Keyword: "measuring scoop", Rank: 2, Volume: 400, PurchaseShare: 25},
		{Keyword: "powder scoop", Rank: 3, Volume: 300, PurchaseShare: 20},
	}
	if _, err := trk.RunWeeklyUpdate("B0SCOOP0001", sqp.Week{Year: 2025, Num: 14}, week1, store.AppendMeta{Source: "csv:w14.csv"}); err != nil {
		t.Fatalf("week 1 import failed: %v", err)
	}

	week2 := []sqp.Record{
		{Keyword: "mg scoop", Rank: 1, Volume: 250, PurchaseShare: 30},
		{Keyword: "measuring scoop", Rank: 2, Volume: 410, PurchaseShare: 26},
	}
	if _, err := trk.RunWeeklyUpdate("B0SCOOP0001", sqp.Week{Year: 2025, Num: 15}, week2, store.AppendMeta{Source: "csv:w15.csv"}); err != nil {
		t.Fatalf("week 2 import failed: %v", err)
	}

	return NewExporter(trk, logger)
}

func TestSnapshotShape(t *testing.T) {
	exp := newTestExporter(t)

	snap, err := exp.Snapshot("B0SCOOP0001")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.Metadata.ASIN != "B0SCOOP0001" {
		t.Errorf("unexpected ASIN %q", snap.Metadata.ASIN)
	}
	if snap.Metadata.WeekCount != 2 || snap.Metadata.KeywordCount != 3 {
		t.Errorf("unexpected counts: weeks=%d keywords=%d", snap.Metadata.WeekCount, snap.Metadata.KeywordCount)
	}
	if snap.Cycle.CycleStartWeek != "2025-W14" || snap.Cycle.LastWeek != "2025-W15" {
		t.Errorf("unexpected cycle range: %s..%s", snap.Cycle.CycleStartWeek, snap.Cycle.LastWeek)
	}
	if len(snap.Cycle.Weeks) != 2 || snap.Cycle.Weeks[0].Source != "csv:w14.csv" {
		t.Errorf("unexpected week lines: %+v", snap.Cycle.Weeks)
	}

	if len(snap.Keywords) != 3 {
		t.Fatalf("expected 3 keyword series, got %d", len(snap.Keywords))
	}
	for _, series := range snap.Keywords {
		if len(series.Points) != 2 {
			t.Errorf("keyword %q: expected 2 points, got %d", series.Keyword, len(series.Points))
		}
	}

	// powder scoop was absent in week 2
	var powder *KeywordSeries
	for i := range snap.Keywords {
		if snap.Keywords[i].Keyword == "powder scoop" {
			powder = &snap.Keywords[i]
		}
	}
	if powder == nil {
		t.Fatal("powder scoop series not found")
	}
	if !powder.Points[1].Missing {
		t.Error("expected powder scoop week 2 point to be missing")
	}

	// mg scoop halved (volume-drop), powder scoop vanished (missing)
	tags := make(map[string]string, len(snap.Alerts))
	for _, a := range snap.Alerts {
		tags[a.Keyword] = a.Tag
	}
	if tags["mg scoop"] != "volume-drop" {
		t.Errorf("expected mg scoop volume-drop alert, got %q", tags["mg scoop"])
	}
	if tags["powder scoop"] != "missing" {
		t.Errorf("expected powder scoop missing alert, got %q", tags["powder scoop"])
	}
	for _, a := range snap.Alerts {
		if a.Keyword == "mg scoop" && a.VolumeDelta != "-50.0%" {
			t.Errorf("expected rendered volume delta -50.0%%, got %q", a.VolumeDelta)
		}
	}
}

func TestSnapshotRequiresActiveCycle(t *testing.T) {
	exp := newTestExporter(t)

	_, err := exp.Snapshot("B0UNKNOWN01")
	if !sqperrors.IsCode(err, sqperrors.NoActiveWatchlist) {
		t.Errorf("expected NO_ACTIVE_WATCHLIST, got %v", err)
	}
}

func TestRenderJSON(t *testing.T) {
	exp := newTestExporter(t)
	snap, err := exp.Snapshot("B0SCOOP0001")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	data, err := snap.Render("json")
	if err != nil {
		t.Fatalf("Render json failed: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.Metadata.Tool != "sqptrack" {
		t.Errorf("unexpected tool %q", decoded.Metadata.Tool)
	}
	if len(decoded.Keywords) != 3 {
		t.Errorf("expected 3 keyword series after round trip, got %d", len(decoded.Keywords))
	}
}

func TestRenderYAML(t *testing.T) {
	exp := newTestExporter(t)
	snap, err := exp.Snapshot("B0SCOOP0001")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	data, err := snap.Render("yaml")
	if err != nil {
		t.Fatalf("Render yaml failed: %v", err)
	}
	var decoded Snapshot
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid YAML: %v", err)
	}
	if decoded.Cycle.LastWeek != "2025-W15" {
		t.Errorf("unexpected last week %q after round trip", decoded.Cycle.LastWeek)
	}
	if !strings.Contains(string(data), "purchaseShare") {
		t.Error("expected camelCase keys in YAML output")
	}
}

func TestRenderCSVGrid(t *testing.T) {
	exp := newTestExporter(t)
	snap, err := exp.Snapshot("B0SCOOP0001")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	data, err := snap.Render("csv")
	if err != nil {
		t.Fatalf("Render csv failed: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 keyword rows, got %d rows", len(rows))
	}

	header := rows[0]
	want := []string{"keyword", "initial_rank", "2025-W14", "2025-W15"}
	for i, col := range want {
		if header[i] != col {
			t.Errorf("header[%d]: expected %q, got %q", i, col, header[i])
		}
	}

	byKeyword := make(map[string][]string, len(rows)-1)
	for _, row := range rows[1:] {
		byKeyword[row[0]] = row
	}
	if got := byKeyword["mg scoop"][2]; got != "30.0" {
		t.Errorf("mg scoop W14 share: expected 30.0, got %q", got)
	}
	if got := byKeyword["measuring scoop"][3]; got != "26.0" {
		t.Errorf("measuring scoop W15 share: expected 26.0, got %q", got)
	}
	// Absent week renders as an empty cell
	if got := byKeyword["powder scoop"][3]; got != "" {
		t.Errorf("powder scoop W15: expected empty cell, got %q", got)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	snap := &Snapshot{}
	_, err := snap.Render("xml")
	if !sqperrors.IsCode(err, sqperrors.Validation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}
