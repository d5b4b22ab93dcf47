package importer

import (
	"encoding/json"
	"fmt"
	"time"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
)

// reportDocument mirrors the SQP report JSON the Selling Partner API
// returns: one entry per (asin, search query) with nested metric
// objects. Share values arrive as percentages.
type reportDocument struct {
	ErrorDetails        string `json:"errorDetails,omitempty"`
	ReportSpecification struct {
		DataStartTime string            `json:"dataStartTime"`
		DataEndTime   string            `json:"dataEndTime"`
		ReportOptions map[string]string `json:"reportOptions"`
	} `json:"reportSpecification"`
	DataByAsin []reportEntry `json:"dataByAsin"`
}

type reportEntry struct {
	ASIN            string `json:"asin"`
	SearchQueryData struct {
		SearchQuery       string `json:"searchQuery"`
		SearchQueryScore  int    `json:"searchQueryScore"`
		SearchQueryVolume int    `json:"searchQueryVolume"`
	} `json:"searchQueryData"`
	ImpressionData struct {
		AsinImpressionShare float64 `json:"asinImpressionShare"`
	} `json:"impressionData"`
	ClickData struct {
		AsinClickShare       float64 `json:"asinClickShare"`
		AsinMedianClickPrice float64 `json:"asinMedianClickPrice"`
	} `json:"clickData"`
	PurchaseData struct {
		AsinPurchaseShare        float64 `json:"asinPurchaseShare"`
		AsinMedianPurchasePrice  float64 `json:"asinMedianPurchasePrice"`
		TotalMedianPurchasePrice float64 `json:"totalMedianPurchasePrice"`
	} `json:"purchaseData"`
}

// ParseReportDocument converts a downloaded SQP report document into
// records for one ASIN. Entries for other ASINs are dropped when asin
// is non-empty. The week comes from the report period when the caller
// passes none.
func ParseReportDocument(data []byte, asin string, logger *logging.Logger) (*Result, error) {
	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			"cannot parse report document JSON",
			err, nil,
		)
	}
	if doc.ErrorDetails != "" {
		return nil, sqperrors.NewSqpError(
			sqperrors.SpapiError,
			fmt.Sprintf("report document carries an error: %s", doc.ErrorDetails),
			nil, nil,
		)
	}

	var week sqp.Week
	if start, err := time.Parse(time.RFC3339, doc.ReportSpecification.DataStartTime); err == nil {
		week = sqp.WeekOfDate(start)
	} else if start, err := time.Parse("2006-01-02", doc.ReportSpecification.DataStartTime); err == nil {
		week = sqp.WeekOfDate(start)
	}

	records := make([]sqp.Record, 0, len(doc.DataByAsin))
	skipped := 0
	for _, entry := range doc.DataByAsin {
		if asin != "" && entry.ASIN != "" && entry.ASIN != asin {
			continue
		}
		keyword := sqp.NormalizeKeyword(entry.SearchQueryData.SearchQuery)
		if keyword == "" {
			skipped++
			continue
		}
		if entry.SearchQueryData.SearchQueryVolume < 0 {
			skipped++
			logger.Warn("report row skipped", map[string]interface{}{
				"keyword": keyword,
				"reason":  "negative volume",
			})
			continue
		}
		records = append(records, sqp.Record{
			Keyword:         keyword,
			Rank:            entry.SearchQueryData.SearchQueryScore,
			Volume:          entry.SearchQueryData.SearchQueryVolume,
			PurchaseShare:   entry.PurchaseData.AsinPurchaseShare,
			ImpressionShare: entry.ImpressionData.AsinImpressionShare,
			ClickShare:      entry.ClickData.AsinClickShare,
			ASINPrice:       entry.PurchaseData.AsinMedianPurchasePrice,
			MarketPrice:     entry.PurchaseData.TotalMedianPurchasePrice,
		})
	}

	synthesizeRanks(records)
	return &Result{
		Records:     records,
		Week:        week,
		Source:      "report:" + asin,
		Fingerprint: Fingerprint(data),
		Skipped:     skipped,
	}, nil
}
