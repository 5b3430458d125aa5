package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/libreplot/internal/record"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "libreplot.db"

// Init initializes the SQLite database at baseDir/libreplot.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.libreplot.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// best-effort, may not work on all platforms
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// recordColumns lists the numeric record columns in export order.
func recordColumns() []string {
	cols := make([]string, len(record.Fields))
	for i, f := range record.Fields {
		cols[i] = f.String()
	}
	return cols
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		var fields strings.Builder
		for _, col := range recordColumns() {
			fmt.Fprintf(&fields, "\t\t  %s INTEGER NOT NULL DEFAULT 0,\n", col)
		}

		schema := `
		CREATE TABLE IF NOT EXISTS imports (
		  id           TEXT PRIMARY KEY,
		  source_path  TEXT NOT NULL,
		  label        TEXT,
		  imported_at  INTEGER NOT NULL,
		  record_count INTEGER NOT NULL,
		  day_count    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_imports_imported_at
		ON imports(imported_at DESC);

		CREATE TABLE IF NOT EXISTS records (
		  import_id TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
		  timestamp INTEGER NOT NULL,
		  source_id TEXT NOT NULL DEFAULT '',
		  kind      INTEGER NOT NULL,
` + fields.String() + `		  PRIMARY KEY (import_id, timestamp)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
