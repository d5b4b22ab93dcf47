package importer

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
)

// ReadExcel parses one Amazon SQP export in xlsx form. Data is read
// from the first sheet with the same header mapping as CSV imports.
func ReadExcel(path string, logger *logging.Logger) (*Result, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("cannot open Excel file %s", filepath.Base(path)),
			err, nil,
		)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("Excel file %s has no sheets", filepath.Base(path)),
			nil, nil,
		)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("cannot read sheet %q", sheets[0]),
			err, nil,
		)
	}
	if len(rows) < 2 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("Excel file %s has no data rows", filepath.Base(path)),
			nil, nil,
		)
	}

	records, skipped, err := parseRows(rows[0], rows[1:], logger)
	if err != nil {
		return nil, err
	}

	week, _ := WeekFromFilename(filepath.Base(path))
	logger.Debug("excel parsed", map[string]interface{}{
		"file":    filepath.Base(path),
		"sheet":   sheets[0],
		"rows":    len(records),
		"skipped": skipped,
	})

	return &Result{
		Records:     records,
		Week:        week,
		Source:      "excel:" + filepath.Base(path),
		Fingerprint: Fingerprint(data),
		Skipped:     skipped,
	}, nil
}
