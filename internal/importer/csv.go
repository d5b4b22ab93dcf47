package importer

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
)

// ReadCSV parses one Amazon SQP export in CSV form. The reporting week
// is inferred from the filename when it carries one.
func ReadCSV(path string, logger *logging.Logger) (*Result, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("cannot parse CSV file %s", filepath.Base(path)),
			df.Error(), nil,
		)
	}
	if df.Nrow() == 0 {
		return nil, sqperrors.NewSqpError(
			sqperrors.ImportError,
			fmt.Sprintf("CSV file %s has no data rows", filepath.Base(path)),
			nil, nil,
		)
	}

	rows := df.Records() // header first
	records, skipped, err := parseRows(rows[0], rows[1:], logger)
	if err != nil {
		return nil, err
	}

	week, _ := WeekFromFilename(filepath.Base(path))
	logger.Debug("csv parsed", map[string]interface{}{
		"file":    filepath.Base(path),
		"rows":    len(records),
		"skipped": skipped,
	})

	return &Result{
		Records:     records,
		Week:        week,
		Source:      "csv:" + filepath.Base(path),
		Fingerprint: Fingerprint(data),
		Skipped:     skipped,
	}, nil
}
