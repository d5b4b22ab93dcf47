package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"sqptrack/internal/config"
	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/importer"
	"sqptrack/internal/logging"
	"sqptrack/internal/sqp"
	"sqptrack/internal/store"
	"sqptrack/internal/tracker"
)

// engine bundles the shared command dependencies: resolved root,
// configuration, open store, and the tracker on top of it.
type engine struct {
	root    string
	cfg     *config.Config
	db      *store.DB
	tracker *tracker.Tracker
	logger  *logging.Logger
}

var (
	engineOnce   sync.Once
	sharedEngine *engine
	engineErr    error
)

// getEngine returns the shared engine instance.
// The engine is lazily initialized on first use.
func getEngine(root string, logger *logging.Logger) (*engine, error) {
	engineOnce.Do(func() {
		cfg, err := config.LoadConfig(root)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}
		if err := cfg.Validate(); err != nil {
			engineErr = sqperrors.NewSqpError(sqperrors.ConfigError, "invalid configuration", err, nil)
			return
		}

		db, err := store.Open(root, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		sharedEngine = &engine{
			root:    root,
			cfg:     cfg,
			db:      db,
			tracker: tracker.New(db, cfg.Tracking, logger),
			logger:  logger,
		}
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared engine or exits on error.
func mustGetEngine(root string, logger *logging.Logger) *engine {
	eng, err := getEngine(root, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}

// getRoot returns the working directory the state dir hangs off.
func getRoot() (string, error) {
	return os.Getwd()
}

// mustGetRoot returns the working directory or exits on error.
func mustGetRoot() string {
	root, err := getRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format. --verbose
// lowers the threshold to debug.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.InfoLevel
	if verboseFlag {
		level = logging.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}

// readImport loads records from exactly one of --csv or --excel.
func readImport(csvPath, excelPath string, logger *logging.Logger) (*importer.Result, error) {
	switch {
	case csvPath != "" && excelPath != "":
		return nil, sqperrors.NewSqpError(sqperrors.Validation,
			"pass either --csv or --excel, not both", nil, nil)
	case csvPath != "":
		return importer.ReadCSV(csvPath, logger)
	case excelPath != "":
		return importer.ReadExcel(excelPath, logger)
	default:
		return nil, sqperrors.NewSqpError(sqperrors.Validation,
			"an import file is required; pass --csv or --excel", nil, nil)
	}
}

// weekFromFlags resolves the reporting week: explicit flags win over
// the week derived from the import itself.
func weekFromFlags(weekFlag, weekDateFlag string, fallback sqp.Week) (sqp.Week, error) {
	if weekFlag != "" && weekDateFlag != "" {
		return sqp.Week{}, sqperrors.NewSqpError(sqperrors.Validation,
			"pass either --week or --week-date, not both", nil, nil)
	}
	if weekFlag != "" {
		week, err := sqp.ParseWeek(weekFlag)
		if err != nil {
			return sqp.Week{}, sqperrors.NewSqpError(sqperrors.Validation, err.Error(), nil, nil)
		}
		return week, nil
	}
	if weekDateFlag != "" {
		week, err := sqp.ParseWeekOrDate(weekDateFlag)
		if err != nil {
			return sqp.Week{}, sqperrors.NewSqpError(sqperrors.Validation, err.Error(), nil, nil)
		}
		return week, nil
	}
	if !fallback.IsZero() {
		return fallback, nil
	}
	return sqp.Week{}, sqperrors.NewSqpError(sqperrors.Validation,
		"cannot determine the reporting week; pass --week or --week-date, or name the file like sqp-2025-W14.csv",
		nil, nil)
}
