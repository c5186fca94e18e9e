package db

import (
	"fmt"
	"time"
)

type VisitorRecord struct {
	ID        string
	FirstSeen time.Time
	LastSeen  time.Time
}

func (d *DB) TouchVisitor(id string) error {
	_, err := d.conn.Exec(`
		INSERT INTO visitors (id)
		VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_seen = now()
	`, id)
	if err != nil {
		return fmt.Errorf("touching visitor: %w", err)
	}
	return nil
}

func (d *DB) GetVisitor(id string) (*VisitorRecord, error) {
	var v VisitorRecord
	err := d.conn.QueryRow(`
		SELECT id, first_seen, last_seen FROM visitors WHERE id = $1
	`, id).Scan(&v.ID, &v.FirstSeen, &v.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("getting visitor: %w", err)
	}
	return &v, nil
}
