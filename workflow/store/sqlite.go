// ABOUTME: SQLite-backed mirror for document persistence across process restarts.
// ABOUTME: Single key-value table with WAL mode and upsert semantics.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteMirror is a Mirror backed by a single-table SQLite database. Like the
// in-memory mirror it is a rebuildable cache of serialized documents, not the
// source of truth.
type SqliteMirror struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite mirror database at the given path.
func OpenSqlite(path string) (*SqliteMirror, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS mirror (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteMirror{db: db}, nil
}

// Close closes the database connection.
func (m *SqliteMirror) Close() error {
	return m.db.Close()
}

// Put upserts value under key.
func (m *SqliteMirror) Put(key string, value []byte) error {
	_, err := m.db.Exec(
		`INSERT INTO mirror (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert mirror entry: %w", err)
	}
	return nil
}

// Get returns the value under key, and whether it exists.
func (m *SqliteMirror) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := m.db.QueryRow("SELECT value FROM mirror WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query mirror entry: %w", err)
	}
	return value, true, nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (m *SqliteMirror) Delete(key string) error {
	_, err := m.db.Exec("DELETE FROM mirror WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete mirror entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (m *SqliteMirror) Clear() error {
	_, err := m.db.Exec("DELETE FROM mirror")
	if err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	return nil
}

// Keys returns every stored key in unspecified order.
func (m *SqliteMirror) Keys() ([]string, error) {
	rows, err := m.db.Query("SELECT key FROM mirror")
	if err != nil {
		return nil, fmt.Errorf("query mirror keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan mirror key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
