package analytics

import "time"

// AchievementStat is how many visitors unlocked an achievement.
type AchievementStat struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon,omitempty"`
	Unlocks     int     `json:"unlocks"`
	Percent     float64 `json:"percent"` // of all known visitors
	Rarity      Rarity  `json:"rarity"`
	Description string  `json:"description"`
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

type RecentUnlock struct {
	VisitorID     string    `json:"visitor_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

type Summary struct {
	Visitors     int               `json:"visitors"`
	TotalUnlocks int               `json:"total_unlocks"`
	Achievements []AchievementStat `json:"achievements"`
	Recent       []RecentUnlock    `json:"recent"`
}
