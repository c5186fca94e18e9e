package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, key)
)`

// SQLite is a file-backed Backend used when no Postgres database is
// configured.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway store.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating kv schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Ping() error {
	return s.conn.Ping()
}

func (s *SQLite) GetValue(scope, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM kv_entries WHERE scope = ? AND key = ?`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

func (s *SQLite) SetValue(scope, key, value string) error {
	_, err := s.conn.Exec(`
		INSERT INTO kv_entries (scope, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, scope, key, value)
	if err != nil {
		return fmt.Errorf("setting %s/%s: %w", scope, key, err)
	}
	return nil
}
