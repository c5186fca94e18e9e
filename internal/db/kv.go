package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetValue reads one key of a visitor scope.
func (d *DB) GetValue(scope, key string) (string, bool, error) {
	var value string
	err := d.conn.QueryRow(`
		SELECT value FROM kv_entries WHERE scope = $1 AND key = $2
	`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting value: %w", err)
	}
	return value, true, nil
}

func (d *DB) SetValue(scope, key, value string) error {
	_, err := d.conn.Exec(`
		INSERT INTO kv_entries (scope, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope, key) DO UPDATE SET value = $3, updated_at = now()
	`, scope, key, value)
	if err != nil {
		return fmt.Errorf("setting value: %w", err)
	}
	return nil
}
