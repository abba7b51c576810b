// Package state archives finished plans in SQLite.
//
// The archive is write-once history for people: the workflow never reads
// it back to resume or replay a run.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultHistoryLimit is how many plans are kept; older ones are pruned.
const DefaultHistoryLimit = 200

type DB struct {
	conn  *sql.DB
	limit int
}

// Connect opens (creating if needed) the archive at dbPath. ":memory:" is
// accepted for tests.
func Connect(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, and every :memory: connection is its own database.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	return &DB{conn: conn, limit: DefaultHistoryLimit}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		inputs TEXT NOT NULL,
		version INTEGER NOT NULL,
		visited TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS plan_sections (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		field TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (plan_id, field)
	);
	CREATE TABLE IF NOT EXISTS plan_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		node TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);`
	_, err := db.Exec(schema)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}
