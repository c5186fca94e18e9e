package analytics

import (
	"fmt"

	"edgeroute/internal/achievements"
	"edgeroute/internal/db"
)

type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

func (q *Queries) CountVisitors() (int, error) {
	var n int
	if err := q.DB.QueryRow(`SELECT COUNT(*) FROM visitors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting visitors: %w", err)
	}
	return n, nil
}

// GetUnlockCounts returns unlocks per achievement id.
func (q *Queries) GetUnlockCounts() (map[string]int, error) {
	rows, err := q.DB.Query(`
		SELECT achievement_id, COUNT(*) FROM achievement_unlocks GROUP BY achievement_id
	`)
	if err != nil {
		return nil, fmt.Errorf("getting unlock counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (q *Queries) GetRecentUnlocks(limit int) ([]RecentUnlock, error) {
	rows, err := q.DB.Query(`
		SELECT visitor_id, achievement_id, unlocked_at
		FROM achievement_unlocks
		ORDER BY unlocked_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent unlocks: %w", err)
	}
	defer rows.Close()

	var recent []RecentUnlock
	for rows.Next() {
		var r RecentUnlock
		if err := rows.Scan(&r.VisitorID, &r.AchievementID, &r.UnlockedAt); err != nil {
			return nil, err
		}
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// GetSummary gathers the achievement statistics page.
func (q *Queries) GetSummary(defs []achievements.Definition, recentLimit int) (*Summary, error) {
	visitors, err := q.CountVisitors()
	if err != nil {
		return nil, err
	}
	counts, err := q.GetUnlockCounts()
	if err != nil {
		return nil, err
	}
	recent, err := q.GetRecentUnlocks(recentLimit)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &Summary{
		Visitors:     visitors,
		TotalUnlocks: total,
		Achievements: BuildStats(defs, counts, visitors),
		Recent:       recent,
	}, nil
}
