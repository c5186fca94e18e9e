package analytics

import (
	"sort"

	"edgeroute/internal/achievements"
)

// RarityFor grades an unlock percentage.
func RarityFor(percent float64) Rarity {
	switch {
	case percent >= 50:
		return RarityCommon
	case percent >= 20:
		return RarityUncommon
	case percent >= 5:
		return RarityRare
	default:
		return RarityLegendary
	}
}

// BuildStats joins the definition table with unlock counts, rarest first.
// Counts for ids missing from defs are dropped.
func BuildStats(defs []achievements.Definition, counts map[string]int, visitors int) []AchievementStat {
	stats := make([]AchievementStat, 0, len(defs))
	for _, d := range defs {
		n := counts[d.ID]
		var pct float64
		if visitors > 0 {
			pct = float64(n) * 100 / float64(visitors)
		}
		stats = append(stats, AchievementStat{
			ID:          d.ID,
			Name:        d.Name,
			Icon:        d.Icon,
			Description: d.Description,
			Unlocks:     n,
			Percent:     pct,
			Rarity:      RarityFor(pct),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Unlocks < stats[j].Unlocks
	})
	return stats
}
