package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
)

// ReadFolder parses every *.csv and *.xlsx file in the directory, in
// week order. Each file must carry its week in the filename
// (sqp-2025-W14.csv or a YYYY-MM-DD date); files without one fail the
// batch before anything is returned, so callers never ingest half a
// folder.
func ReadFolder(dir string, logger *logging.Logger) ([]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("cannot read import folder %s", dir),
			err, nil,
		)
	}

	var results []*Result
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		var res *Result
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv":
			res, err = ReadCSV(path, logger)
		case ".xlsx":
			res, err = ReadExcel(path, logger)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if res.Week.IsZero() {
			return nil, sqperrors.NewSqpError(
				sqperrors.ImportError,
				fmt.Sprintf("cannot infer week from filename %q; name files like sqp-2025-W14.csv", name),
				nil, nil,
			)
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("no .csv or .xlsx files found in %s", dir),
			nil, nil,
		)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Week.Before(results[j].Week)
	})
	logger.Info("folder import parsed", map[string]interface{}{
		"dir":   dir,
		"files": len(results),
		"first": results[0].Week.String(),
		"last":  results[len(results)-1].Week.String(),
	})
	return results, nil
}
