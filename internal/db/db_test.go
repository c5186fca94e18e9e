package db

import (
	"os"
	"testing"
	"time"

	"edgeroute/internal/storage"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn, nil)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		// Clean up test data
		database.conn.Exec("DELETE FROM achievement_unlocks")
		database.conn.Exec("DELETE FROM kv_entries")
		database.conn.Exec("DELETE FROM visitors")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	database := getTestDB(t)

	// Re-running must be harmless.
	if err := database.Migrate(); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}

	tables := []string{"visitors", "kv_entries", "achievement_unlocks"}
	for _, table := range tables {
		var exists bool
		err := database.conn.QueryRow(`
			SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)
		`, table).Scan(&exists)
		if err != nil {
			t.Errorf("checking table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestGetSetValue(t *testing.T) {
	database := getTestDB(t)

	_, ok, err := database.GetValue("visitor-1", "unlockedAchievements")
	if err != nil || ok {
		t.Fatalf("GetValue() on empty = %v, %v; want false, nil", ok, err)
	}

	if err := database.SetValue("visitor-1", "unlockedAchievements", `["night-owl"]`); err != nil {
		t.Fatalf("SetValue() error: %v", err)
	}
	if err := database.SetValue("visitor-1", "unlockedAchievements", `["night-owl","console-explorer"]`); err != nil {
		t.Fatalf("SetValue() upsert error: %v", err)
	}

	v, ok, err := database.GetValue("visitor-1", "unlockedAchievements")
	if err != nil || !ok {
		t.Fatalf("GetValue() = %v, %v", ok, err)
	}
	if v != `["night-owl","console-explorer"]` {
		t.Errorf("value = %q", v)
	}

	_, ok, _ = database.GetValue("visitor-2", "unlockedAchievements")
	if ok {
		t.Error("scopes should be isolated")
	}
}

func TestDBAsScopedStore(t *testing.T) {
	database := getTestDB(t)
	s := storage.Scoped(database, "visitor-3")

	if err := storage.SaveList(s, "unlockedAchievements", []string{"speed-clicker"}); err != nil {
		t.Fatalf("SaveList() error: %v", err)
	}
	list, err := storage.LoadList(s, "unlockedAchievements")
	if err != nil {
		t.Fatalf("LoadList() error: %v", err)
	}
	if len(list) != 1 || list[0] != "speed-clicker" {
		t.Errorf("list = %v", list)
	}
}

func TestTouchVisitor(t *testing.T) {
	database := getTestDB(t)

	if err := database.TouchVisitor("visitor-1"); err != nil {
		t.Fatalf("TouchVisitor() error: %v", err)
	}
	first, err := database.GetVisitor("visitor-1")
	if err != nil {
		t.Fatalf("GetVisitor() error: %v", err)
	}
	if err := database.TouchVisitor("visitor-1"); err != nil {
		t.Fatalf("TouchVisitor() again error: %v", err)
	}
	second, err := database.GetVisitor("visitor-1")
	if err != nil {
		t.Fatalf("GetVisitor() error: %v", err)
	}
	if !second.FirstSeen.Equal(first.FirstSeen) {
		t.Error("first_seen should not change")
	}
	if second.LastSeen.Before(first.LastSeen) {
		t.Error("last_seen should not go backwards")
	}
}

func TestGetVisitor_NotFound(t *testing.T) {
	database := getTestDB(t)

	if _, err := database.GetVisitor("nobody"); err == nil {
		t.Error("GetVisitor() should return error for unknown visitor")
	}
}

func TestRecordUnlock(t *testing.T) {
	database := getTestDB(t)

	first := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	if err := database.RecordUnlock("visitor-1", "night-owl", first); err != nil {
		t.Fatalf("RecordUnlock() error: %v", err)
	}
	if err := database.RecordUnlock("visitor-1", "night-owl", time.Now()); err != nil {
		t.Fatalf("RecordUnlock() duplicate error: %v", err)
	}
	if err := database.RecordUnlock("visitor-1", "console-explorer", time.Now()); err != nil {
		t.Fatalf("RecordUnlock() error: %v", err)
	}

	ids, err := database.GetVisitorUnlocks("visitor-1")
	if err != nil {
		t.Fatalf("GetVisitorUnlocks() error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "night-owl" || ids[1] != "console-explorer" {
		t.Errorf("unlocks = %v", ids)
	}

	var at time.Time
	database.conn.QueryRow(`
		SELECT unlocked_at FROM achievement_unlocks WHERE visitor_id = $1 AND achievement_id = $2
	`, "visitor-1", "night-owl").Scan(&at)
	if !at.Equal(first) {
		t.Errorf("unlocked_at = %v, want %v (first unlock kept)", at, first)
	}
}

func TestBatchRecordUnlocks(t *testing.T) {
	database := getTestDB(t)

	now := time.Now()
	records := []UnlockRecord{
		{VisitorID: "visitor-9", AchievementID: "night-owl", UnlockedAt: now},
		{VisitorID: "visitor-9", AchievementID: "speed-clicker", UnlockedAt: now},
		{VisitorID: "visitor-9", AchievementID: "night-owl", UnlockedAt: now.Add(time.Second)},
	}
	if err := database.BatchRecordUnlocks(records); err != nil {
		t.Fatalf("BatchRecordUnlocks() error: %v", err)
	}

	var count int
	database.conn.QueryRow("SELECT COUNT(*) FROM achievement_unlocks WHERE visitor_id = $1", "visitor-9").Scan(&count)
	if count != 2 {
		t.Errorf("unlock count = %d, want 2", count)
	}
}
