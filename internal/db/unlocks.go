package db

import (
	"fmt"
	"time"
)

// RecordUnlock stores the first unlock of an achievement by a visitor. Later
// calls for the same pair keep the original time.
func (d *DB) RecordUnlock(visitorID, achievementID string, at time.Time) error {
	_, err := d.conn.Exec(`
		INSERT INTO achievement_unlocks (visitor_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (visitor_id, achievement_id) DO NOTHING
	`, visitorID, achievementID, at)
	if err != nil {
		return fmt.Errorf("recording unlock: %w", err)
	}
	return nil
}

func (d *DB) GetVisitorUnlocks(visitorID string) ([]string, error) {
	rows, err := d.conn.Query(`
		SELECT achievement_id FROM achievement_unlocks WHERE visitor_id = $1 ORDER BY unlocked_at
	`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("getting unlocks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type UnlockRecord struct {
	VisitorID     string
	AchievementID string
	UnlockedAt    time.Time
}

func (d *DB) BatchRecordUnlocks(records []UnlockRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO achievement_unlocks (visitor_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (visitor_id, achievement_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.VisitorID, r.AchievementID, r.UnlockedAt); err != nil {
			return fmt.Errorf("recording unlock in batch: %w", err)
		}
	}

	return tx.Commit()
}
