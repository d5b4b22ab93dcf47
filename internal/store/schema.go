package store

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		// Create schema_version table first
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		// Create all application tables
		if err := createWatchlistsTable(tx); err != nil {
			return err
		}
		if err := createLockedKeywordsTable(tx); err != nil {
			return err
		}
		if err := createWeeksTable(tx); err != nil {
			return err
		}
		if err := createMetricRecordsTable(tx); err != nil {
			return err
		}

		// Set initial schema version
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	// Get current schema version
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially
	// Add migration functions here as schema evolves
	// Example:
	// if version < 2 {
	//     if err := db.migrateToV2(); err != nil {
	//         return err
	//     }
	// }

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		// Table doesn't exist, this is a new database
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	// Get version
	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createWatchlistsTable creates the watchlists table
// One row per tracking cycle: exactly one may be active per ASIN,
// archived rows are immutable snapshots of completed cycles
func createWatchlistsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS watchlists (
			id TEXT PRIMARY KEY,
			asin TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('active', 'archived')),
			cycle_start_week TEXT NOT NULL,
			week_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			archived_at TEXT,
			archive_id TEXT UNIQUE,
			archive_label TEXT,

			-- Constraints
			CHECK(
				(status = 'archived' AND archived_at IS NOT NULL AND archive_id IS NOT NULL) OR
				(status = 'active' AND archived_at IS NULL)
			)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create watchlists table: %w", err)
	}

	// Create indexes for common queries
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_watchlists_active_asin ON watchlists(asin) WHERE status = 'active'",
		"CREATE INDEX IF NOT EXISTS idx_watchlists_status ON watchlists(status)",
		"CREATE INDEX IF NOT EXISTS idx_watchlists_asin ON watchlists(asin)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createLockedKeywordsTable creates the locked_keywords table
// The keyword set frozen at cycle start; position preserves the
// rank-ascending selection order
func createLockedKeywordsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS locked_keywords (
			watchlist_id TEXT NOT NULL,
			keyword TEXT NOT NULL,
			initial_rank INTEGER NOT NULL,
			position INTEGER NOT NULL,

			PRIMARY KEY (watchlist_id, keyword),
			FOREIGN KEY (watchlist_id) REFERENCES watchlists(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create locked_keywords table: %w", err)
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_locked_keywords_position ON locked_keywords(watchlist_id, position)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createWeeksTable creates the weeks table
// One row per appended week; seq is the 1-based ordinal within the cycle
func createWeeksTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS weeks (
			watchlist_id TEXT NOT NULL,
			week_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			imported_at TEXT NOT NULL,
			source TEXT,
			fingerprint TEXT,

			PRIMARY KEY (watchlist_id, week_id),
			UNIQUE (watchlist_id, seq),
			FOREIGN KEY (watchlist_id) REFERENCES watchlists(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create weeks table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_weeks_seq ON weeks(watchlist_id, seq)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createMetricRecordsTable creates the metric_records table
// One row per (watchlist, keyword, week); rank and purchase_share are
// NULL on sentinel rows for keywords absent from a week's import
func createMetricRecordsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metric_records (
			watchlist_id TEXT NOT NULL,
			keyword TEXT NOT NULL,
			week_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			rank INTEGER,
			volume INTEGER NOT NULL DEFAULT 0,
			purchase_share REAL,
			impression_share REAL,
			click_share REAL,
			asin_price REAL,
			market_price REAL,
			missing INTEGER NOT NULL DEFAULT 0,

			PRIMARY KEY (watchlist_id, keyword, week_id),
			FOREIGN KEY (watchlist_id) REFERENCES watchlists(id) ON DELETE CASCADE,

			-- Constraints
			CHECK(
				(missing = 1 AND rank IS NULL AND purchase_share IS NULL AND volume = 0) OR
				(missing = 0 AND rank IS NOT NULL AND purchase_share IS NOT NULL)
			)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metric_records table: %w", err)
	}

	// Create indexes for history and week-slice queries
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_metric_records_keyword ON metric_records(watchlist_id, keyword, seq)",
		"CREATE INDEX IF NOT EXISTS idx_metric_records_week ON metric_records(watchlist_id, seq)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
