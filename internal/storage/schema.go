package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// OpenDB opens (creating if needed) the SQLite database at dbPath with
// WAL journaling and runs schema migrations.
func OpenDB(dbPath string) (*sql.DB, error) {
	parentDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := migrateSchema(db, dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *sql.DB, dbPath string) error {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion int
	if err == sql.ErrNoRows {
		currentVersion = 0
	} else if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	} else {
		err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&currentVersion)
		if err == sql.ErrNoRows {
			currentVersion = 0
		} else if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	if currentVersion > currentSchemaVersion {
		return fmt.Errorf(
			"database schema version %d is newer than this agenttop version supports (max: %d); upgrade agenttop or delete %s to start fresh",
			currentVersion, currentSchemaVersion, dbPath,
		)
	}

	if currentVersion < currentSchemaVersion {
		if err := applyMigrations(db, currentVersion); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	return nil
}

func applyMigrations(db *sql.DB, fromVersion int) error {
	if fromVersion == 0 {
		if err := migrateV0ToV1(db); err != nil {
			return fmt.Errorf("migration v0→v1: %w", err)
		}
	}
	return nil
}

func migrateV0ToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		name string
		sql  string
	}{
		{"schema_version table", `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`},
		{"history_entries table", `
			CREATE TABLE IF NOT EXISTS history_entries (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				token_count INTEGER,
				tags TEXT,
				metadata TEXT
			)`},
		{"alert_history table", `
			CREATE TABLE IF NOT EXISTS alert_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				type TEXT NOT NULL,
				severity TEXT NOT NULL,
				message TEXT NOT NULL,
				fired_at TEXT NOT NULL
			)`},
		{"stats_snapshots table", `
			CREATE TABLE IF NOT EXISTS stats_snapshots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				captured_at TEXT NOT NULL,
				total_api_calls INTEGER,
				successful_api_calls INTEGER,
				failed_api_calls INTEGER,
				avg_response_ms REAL,
				total_tokens INTEGER,
				total_cost REAL,
				total_tool_executions INTEGER,
				avg_tool_ms REAL,
				error_rate REAL
			)`},
		{"idx_history_ts", "CREATE INDEX IF NOT EXISTS idx_history_ts ON history_entries(timestamp)"},
		{"idx_alerts_fired", "CREATE INDEX IF NOT EXISTS idx_alerts_fired ON alert_history(fired_at)"},
		{"idx_snapshots_captured", "CREATE INDEX IF NOT EXISTS idx_snapshots_captured ON stats_snapshots(captured_at)"},
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s: %w", s.name, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("inserting schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
