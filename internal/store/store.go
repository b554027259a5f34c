// Package store provides the SQLite-backed persistent key/value store.
//
// Values are JSON documents keyed by string. Reads merge over
// caller-supplied defaults: a key absent from the store leaves its
// destination untouched, and a stored object only overwrites the fields
// it carries, so partial snapshots from older versions still load.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the interface consumed by the state layer and the handoff
// machine. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type Store interface {
	// Get reads every key in dst and unmarshals stored values over the
	// pre-filled defaults the destinations already hold.
	Get(dst map[string]any) error
	// Set marshals and upserts all items in one transaction.
	Set(items map[string]any) error
	// Remove deletes the given keys. Missing keys are not an error.
	Remove(keys ...string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with key/value operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get unmarshals each stored value into the matching destination pointer.
// Destinations keep whatever defaults they were pre-filled with when the
// key is absent.
func (db *DB) Get(dst map[string]any) error {
	stmt, err := db.conn.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare get: %w", err)
	}
	defer stmt.Close()

	for key, target := range dst {
		var raw string
		err := stmt.QueryRow(key).Scan(&raw)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("store: get %q: %w", key, err)
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return fmt.Errorf("store: decode %q: %w", key, err)
		}
	}
	return nil
}

// Set upserts all items within a transaction.
func (db *DB) Set(items map[string]any) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("store: prepare set: %w", err)
	}
	defer stmt.Close()

	for key, v := range items {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store: encode %q: %w", key, err)
		}
		if _, err := stmt.Exec(key, string(raw)); err != nil {
			return fmt.Errorf("store: set %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// Remove deletes the given keys within a transaction.
func (db *DB) Remove(keys ...string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("store: remove %q: %w", key, err)
		}
	}
	return tx.Commit()
}
