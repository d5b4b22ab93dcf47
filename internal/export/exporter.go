package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/tracker"
)

// Exporter assembles cycle snapshots from the store
type Exporter struct {
	tracker *tracker.Tracker
	logger  *logging.Logger
}

// NewExporter creates a new exporter
func NewExporter(tr *tracker.Tracker, logger *logging.Logger) *Exporter {
	return &Exporter{
		tracker: tr,
		logger:  logger,
	}
}

// Snapshot builds the full export for the ASIN's active cycle: cycle
// metadata, every locked keyword's week series, the latest week's
// alerts, and the ASIN's archived cycles.
func (e *Exporter) Snapshot(asin string) (*Snapshot, error) {
	status, err := e.tracker.Status(asin)
	if err != nil {
		return nil, err
	}
	wl := status.Watchlist

	e.logger.Debug("Building export snapshot", map[string]interface{}{
		"asin":      wl.ASIN,
		"watchlist": wl.ID,
		"weeks":     wl.WeekCount,
	})

	snap := &Snapshot{
		Metadata: Metadata{
			Tool:         "sqptrack",
			ASIN:         wl.ASIN,
			Generated:    time.Now().UTC().Format(time.RFC3339),
			WeekCount:    wl.WeekCount,
			KeywordCount: len(status.Locked),
		},
		Cycle: Cycle{
			WatchlistID:    wl.ID,
			CycleStartWeek: wl.CycleStartWeek.String(),
			LastWeek:       wl.LastWeek.String(),
			WeekCount:      wl.WeekCount,
			MaxWeeks:       status.MaxWeeks,
			CreatedAt:      wl.CreatedAt.Format(time.RFC3339),
		},
		Keywords: make([]KeywordSeries, 0, len(status.Locked)),
	}

	for _, entry := range status.Weeks {
		snap.Cycle.Weeks = append(snap.Cycle.Weeks, WeekLine{
			Week:       entry.Week.String(),
			Seq:        entry.Seq,
			Source:     entry.Source,
			ImportedAt: entry.ImportedAt.Format(time.RFC3339),
		})
	}

	for _, kw := range status.Locked {
		history, err := e.tracker.DB().History(wl.ID, kw.Keyword)
		if err != nil {
			return nil, err
		}
		series := KeywordSeries{
			Keyword:     kw.Keyword,
			InitialRank: kw.InitialRank,
			Points:      make([]Point, 0, len(history)),
		}
		for _, rec := range history {
			series.Points = append(series.Points, Point{
				Week:            rec.Week.String(),
				Rank:            rec.Rank,
				Volume:          rec.Volume,
				PurchaseShare:   rec.PurchaseShare,
				ImpressionShare: rec.ImpressionShare,
				ClickShare:      rec.ClickShare,
				Missing:         rec.Missing,
			})
		}
		snap.Keywords = append(snap.Keywords, series)
	}

	view, err := e.tracker.LatestView(asin)
	if err != nil {
		return nil, err
	}
	for _, row := range view.Alerts() {
		snap.Alerts = append(snap.Alerts, Alert{
			Keyword:     row.Keyword,
			Tag:         string(row.Tag),
			VolumeDelta: row.VolumeDelta.Pct(),
			ShareDelta:  row.ShareDelta.Pts(),
		})
	}

	archives, err := e.tracker.DB().Archives(asin)
	if err != nil {
		return nil, err
	}
	for _, arch := range archives {
		snap.Archives = append(snap.Archives, ArchiveEntry{
			ArchiveID:  arch.ArchiveID,
			Label:      arch.Label,
			CycleStart: arch.CycleStartWeek.String(),
			WeekCount:  arch.WeekCount,
			ArchivedAt: arch.ArchivedAt.Format(time.RFC3339),
		})
	}

	e.logger.Debug("Export snapshot built", map[string]interface{}{
		"keywords": len(snap.Keywords),
		"alerts":   len(snap.Alerts),
		"archives": len(snap.Archives),
	})

	return snap, nil
}

// Render serializes the snapshot as "json", "yaml", or "csv"
func (s *Snapshot) Render(format string) ([]byte, error) {
	switch format {
	case "json", "":
		return json.MarshalIndent(s, "", "  ")
	case "yaml":
		return yaml.Marshal(s)
	case "csv":
		var buf bytes.Buffer
		if err := s.writeCSV(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, sqperrors.NewSqpError(sqperrors.Validation,
			fmt.Sprintf("unsupported export format %q (want json, yaml, or csv)", format), nil, nil)
	}
}

// writeCSV renders the purchase-share grid: one row per locked keyword,
// one column per recorded week. Missing weeks render as empty cells.
// Every series carries one point per appended week, so rows and the
// header stay aligned.
func (s *Snapshot) writeCSV(buf *bytes.Buffer) error {
	w := csv.NewWriter(buf)

	header := []string{"keyword", "initial_rank"}
	for _, wk := range s.Cycle.Weeks {
		header = append(header, wk.Week)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, series := range s.Keywords {
		byWeek := make(map[string]Point, len(series.Points))
		for _, p := range series.Points {
			byWeek[p.Week] = p
		}
		row := []string{series.Keyword, strconv.Itoa(series.InitialRank)}
		for _, wk := range s.Cycle.Weeks {
			p, ok := byWeek[wk.Week]
			if !ok || p.Missing {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(p.PurchaseShare, 'f', 1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
