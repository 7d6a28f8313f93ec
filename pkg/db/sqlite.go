package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection
type DB struct {
	*sql.DB
}

// NewDB opens the SQLite database at dbPath, creating its directory.
// ":memory:" gives a private in-memory database.
func NewDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; also keeps a :memory: database on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.DB.Close()
}

// InitSchema creates the tables if they are missing.
func (d *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS local_tasks (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		in_progress INTEGER NOT NULL,
		overdue INTEGER NOT NULL,
		upcoming INTEGER NOT NULL,
		completion_rate REAL NOT NULL,
		rejected INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS calendar_sync (
		task_id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		sync_key TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := d.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	return nil
}
