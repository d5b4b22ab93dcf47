// Package importer parses weekly SQP exports into metric records:
// Amazon Brand Analytics CSV/Excel downloads, folders of weekly files,
// and SP-API report documents.
package importer

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
)

// Result is one parsed import: the records plus provenance. Week is
// zero unless it could be derived from the input (filename or report
// period); callers must supply it otherwise.
type Result struct {
	Records     []sqp.Record
	Week        sqp.Week
	Source      string
	Fingerprint string
	Skipped     int // malformed rows dropped with a warning
}

var (
	weekLabelPattern = regexp.MustCompile(`(\d{4})-?[Ww](\d{1,2})`)
	weekDatePattern  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

// WeekFromFilename derives the reporting week from names like
// sqp-2025-W14.csv or export_2025-04-06.xlsx.
func WeekFromFilename(name string) (sqp.Week, bool) {
	if m := weekLabelPattern.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[1])
		num, _ := strconv.Atoi(m[2])
		if num >= 1 && num <= 53 {
			return sqp.Week{Year: year, Num: num}, true
		}
	}
	if m := weekDatePattern.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Year() == year && int(t.Month()) == month {
			return sqp.WeekOfDate(t), true
		}
	}
	return sqp.Week{}, false
}

// Fingerprint digests raw import bytes for duplicate-file detection
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("cannot read import file %s", path),
			err, nil,
		)
	}
	return data, nil
}

// columns maps canonical fields to header positions, -1 when absent
type columns struct {
	keyword     int
	rank        int
	volume      int
	purchase    int
	impression  int
	click       int
	asinPrice   int
	marketPrice int
}

// headerAliases maps normalized header names to canonical fields.
// Amazon's export headers and the simplified short forms both resolve.
var headerAliases = map[string]string{
	"search query": "keyword",
	"keyword":      "keyword",
	"query":        "keyword",

	"search query score": "rank",
	"score":              "rank",
	"rank":               "rank",

	"search query volume": "volume",
	"search volume":       "volume",
	"volume":              "volume",

	"purchases asin share":  "purchase",
	"purchases brand share": "purchase",
	"purchase share":        "purchase",

	"impressions asin share":  "impression",
	"impressions brand share": "impression",
	"impression share":        "impression",
	"imp share":               "impression",

	"clicks asin share":  "click",
	"clicks brand share": "click",
	"clicks click share": "click",
	"click share":        "click",

	"purchases asin price median": "asinPrice",
	"asin price":                  "asinPrice",

	"purchases price median": "marketPrice",
	"market price":           "marketPrice",
	"median price":           "marketPrice",
}

var headerCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = headerCleaner.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// resolveColumns maps a header row to canonical field positions.
// Keyword, volume and purchase share are required; a missing rank
// column is tolerated (ranks get synthesized from volume order).
func resolveColumns(headers []string) (*columns, error) {
	cols := &columns{
		keyword: -1, rank: -1, volume: -1, purchase: -1,
		impression: -1, click: -1, asinPrice: -1, marketPrice: -1,
	}
	for i, h := range headers {
		switch headerAliases[normalizeHeader(h)] {
		case "keyword":
			cols.keyword = i
		case "rank":
			cols.rank = i
		case "volume":
			cols.volume = i
		case "purchase":
			cols.purchase = i
		case "impression":
			cols.impression = i
		case "click":
			cols.click = i
		case "asinPrice":
			cols.asinPrice = i
		case "marketPrice":
			cols.marketPrice = i
		}
	}

	var missing []string
	if cols.keyword < 0 {
		missing = append(missing, "search query / keyword")
	}
	if cols.volume < 0 {
		missing = append(missing, "search query volume / volume")
	}
	if cols.purchase < 0 {
		missing = append(missing, "purchases asin share / purchase share")
	}
	if len(missing) > 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("required columns not found: %s", strings.Join(missing, "; ")),
			nil, nil,
		).WithDetails(map[string]interface{}{"headers": strings.Join(headers, ", ")})
	}
	return cols, nil
}

// parseRows turns header + data rows into records. Malformed rows are
// skipped with a warning, never fatal: empty keyword, unparseable or
// negative volume, shares outside 0..100.
func parseRows(headers []string, rows [][]string, logger *logging.Logger) ([]sqp.Record, int, error) {
	cols, err := resolveColumns(headers)
	if err != nil {
		return nil, 0, err
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	records := make([]sqp.Record, 0, len(rows))
	skipped := 0
	skip := func(line int, reason string) {
		skipped++
		logger.Warn("import row skipped", map[string]interface{}{
			"line":   line,
			"reason": reason,
		})
	}

	for i, row := range rows {
		line := i + 2 // 1-based, after the header

		keyword := sqp.NormalizeKeyword(cell(row, cols.keyword))
		if keyword == "" {
			skip(line, "empty keyword")
			continue
		}

		volume, err := parseIntValue(cell(row, cols.volume))
		if err != nil {
			skip(line, "unparseable volume")
			continue
		}
		if volume < 0 {
			skip(line, "negative volume")
			continue
		}

		purchase, err := parseFloatValue(cell(row, cols.purchase))
		if err != nil {
			skip(line, "unparseable purchase share")
			continue
		}
		impression, _ := parseFloatValue(cell(row, cols.impression))
		click, _ := parseFloatValue(cell(row, cols.click))
		if !validShare(purchase) || !validShare(impression) || !validShare(click) {
			skip(line, "share outside 0..100")
			continue
		}

		rank, err := parseIntValue(cell(row, cols.rank))
		if err != nil || rank < 0 {
			rank = 0
		}
		asinPrice, _ := parseFloatValue(cell(row, cols.asinPrice))
		marketPrice, _ := parseFloatValue(cell(row, cols.marketPrice))

		records = append(records, sqp.Record{
			Keyword:         keyword,
			Rank:            rank,
			Volume:          volume,
			PurchaseShare:   purchase,
			ImpressionShare: impression,
			ClickShare:      click,
			ASINPrice:       asinPrice,
			MarketPrice:     marketPrice,
		})
	}

	synthesizeRanks(records)
	return records, skipped, nil
}

// synthesizeRanks fills missing ranks by descending volume, placed
// after any ranks the source provided, so top-N selection stays
// meaningful for files without a score column.
func synthesizeRanks(records []sqp.Record) {
	maxRank := 0
	var missing []int
	for i, r := range records {
		if r.Rank > 0 {
			if r.Rank > maxRank {
				maxRank = r.Rank
			}
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return
	}
	sort.SliceStable(missing, func(a, b int) bool {
		ra, rb := records[missing[a]], records[missing[b]]
		if ra.Volume != rb.Volume {
			return ra.Volume > rb.Volume
		}
		return ra.Keyword < rb.Keyword
	})
	for pos, idx := range missing {
		records[idx].Rank = maxRank + pos + 1
	}
}

func validShare(v float64) bool {
	return v >= 0 && v <= 100
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", "%", "", " ", "", " ", "")

func cleanNumber(s string) string {
	return numberCleaner.Replace(strings.TrimSpace(s))
}

func parseFloatValue(s string) (float64, error) {
	cleaned := cleanNumber(s)
	if cleaned == "" || cleaned == "-" || strings.EqualFold(cleaned, "n/a") {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

func parseIntValue(s string) (int, error) {
	cleaned := cleanNumber(s)
	if cleaned == "" || cleaned == "-" || strings.EqualFold(cleaned, "n/a") {
		return 0, nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
