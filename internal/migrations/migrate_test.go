package migrations

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/tagrush/backend/internal/database"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/000001_init.up.sql":        {},
		"pg/000001_init.down.sql":      {},
		"pg/000012_more.up.sql":        {},
		"pg/README.md":                 {},
		"pg/000003_between.up.sql":     {},
		"pg/nested/000099_skip.up.sql": {},
	}

	if got := findLatestMigrationVersion(fsys, "pg"); got != 12 {
		t.Errorf("expected 12 got %d", got)
	}
	if got := findLatestMigrationVersion(fsys, "missing"); got != 0 {
		t.Errorf("expected 0 for a missing dir, got %d", got)
	}
}

func TestEmbeddedMigrationsMatchAcrossDrivers(t *testing.T) {
	pg := findLatestMigrationVersion(files, "postgres")
	lite := findLatestMigrationVersion(files, "sqlite3")
	if pg == 0 || pg != lite {
		t.Errorf("postgres at version %d, sqlite3 at version %d", pg, lite)
	}
}

func TestRunMigrationsSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	if err := RunMigrations("sqlite3", dsn); err != nil {
		t.Fatal(err)
	}
	// Second run is a no-op.
	if err := RunMigrations("sqlite3", dsn); err != nil {
		t.Fatal(err)
	}

	db, err := database.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, table := range []string{"matches", "players", "operator_accounts", "operator_audit"} {
		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}
