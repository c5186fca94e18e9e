package eggs

import (
	"math/rand"
	"time"
)

// Console texts printed to curious developers.
var (
	ConsoleGreeting = []string{
		"👋 Hello curious developer!",
		`You found an Easter egg! Try typing "edgeroute.secretMessage()" below.`,
	}
	SecretMessageLines = []string{
		"Congratulations! You've unlocked the secret console message!",
		"Try the Konami code (↑↑↓↓←→←→BA) on any page.",
	}
	ConsoleReward = "🎉 Achievement unlocked: Console Explorer!"
)

const AdminPanelPath = "/admin-panel-314159"

// AdminStatsInterval is how often the admin panel refreshes its fake numbers.
const AdminStatsInterval = 3 * time.Second

type GuideEntry struct {
	Name string `json:"name"`
	Hint string `json:"hint"`
}

var AdminGuide = []GuideEntry{
	{Name: "Konami Code", Hint: "Press ↑↑↓↓←→←→BA on any page"},
	{Name: "Secret Theme", Hint: "Click logo, logo, profile, logo in sequence"},
	{Name: "Console Message", Hint: "Open browser console (F12)"},
	{Name: "Hidden Achievements", Hint: "Various actions unlock achievements"},
	{Name: "Secret Admin Panel", Hint: "Visit " + AdminPanelPath},
}

// AdminButtons are the panel's controls and the joke each one answers with.
var AdminButtons = []GuideEntry{
	{Name: "Deploy Skynet", Hint: "Just kidding! This button doesn't actually do anything."},
	{Name: "Launch Missiles", Hint: "This is just an Easter egg, not a real admin panel."},
	{Name: "Return to Site", Hint: "/"},
}

// AdminStats are the made-up numbers on the secret admin panel.
type AdminStats struct {
	ServerStatus   string `json:"server_status"`
	DatabaseStatus string `json:"database_status"`
	ActiveUsers    int    `json:"active_users"`
	ServerLoad     int    `json:"server_load"`
}

// FakeAdminStats rolls active users in [1,100] and server load in [5,34].
func FakeAdminStats(rng *rand.Rand) AdminStats {
	return AdminStats{
		ServerStatus:   "ONLINE",
		DatabaseStatus: "CONNECTED",
		ActiveUsers:    rng.Intn(100) + 1,
		ServerLoad:     rng.Intn(30) + 5,
	}
}
