package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VoxDroid/shguard/internal/config"
)

func TestInitDBCreatesFileAndSchema(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(config.EnvHome, tmp)
	t.Setenv(config.EnvDB, "")

	dbPath, err := config.DBPath()
	if err != nil {
		t.Fatalf("DBPath(): %v", err)
	}

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("db file not created: %v", err)
	}

	var count int
	r := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='decisions'")
	if err := r.Scan(&count); err != nil {
		t.Fatalf("query schema: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected table 'decisions' to exist")
	}

	if _, err := db.Exec("INSERT INTO decisions (command, allowed, created_at) VALUES (?, 1, datetime('now'))", "ls"); err != nil {
		t.Fatalf("insert decision failed: %v", err)
	}
}

func TestApplyMigrationsIsRepeatable(t *testing.T) {
	db, err := Open("file:test_repeat?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := ApplyMigrations(db); err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT count(*) FROM pragma_table_info('decisions') WHERE name IN ('cwd', 'exit_code')").Scan(&n); err != nil {
		t.Fatalf("table_info: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected migrated columns, got %d", n)
	}
}

func TestTriggerRejectsDenyWithoutRule(t *testing.T) {
	db, err := Open("file:test_triggers?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("INSERT INTO decisions (command, allowed, rule, created_at) VALUES (?, 0, '  ', datetime('now'))", "format c:"); err == nil {
		t.Fatalf("expected deny without rule to be rejected by trigger")
	}
	if _, err := db.Exec("INSERT INTO decisions (command, allowed, rule, created_at) VALUES (?, 0, ?, datetime('now'))", "format c:", "disk-format"); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if _, err := db.Exec("INSERT INTO decisions (command, allowed, created_at) VALUES (?, 2, datetime('now'))", "ls"); err == nil {
		t.Fatalf("expected check constraint on allowed")
	}
}

func TestInitDBCreatesMissingDirs(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "home")
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvDB, "")

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	_ = db.Close()
	if fi, err := os.Stat(home); err != nil || !fi.IsDir() {
		t.Fatalf("expected data dir %s to be created: %v", home, err)
	}

	custom := filepath.Join(t.TempDir(), "elsewhere", "log.db")
	t.Setenv(config.EnvDB, custom)
	db, err = InitDB()
	if err != nil {
		t.Fatalf("InitDB() with %s: %v", config.EnvDB, err)
	}
	_ = db.Close()
	if _, err := os.Stat(custom); err != nil {
		t.Fatalf("expected db at %s: %v", custom, err)
	}
}
