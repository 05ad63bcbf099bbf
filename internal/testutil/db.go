// Package testutil provides a migrated SQLite database for package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/database"
	"github.com/tagrush/backend/internal/migrations"
)

// NewDB returns a freshly migrated SQLite database that lives for the
// duration of the test.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "tagrush.db") + "?_foreign_keys=on&_busy_timeout=5000"
	if err := migrations.RunMigrations("sqlite3", dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := database.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *sqlx.DB, table string) int {
	t.Helper()

	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// NewPostgresDB connects to the database named by TEST_DATABASE_URL, migrates
// it and empties the tables. The test is skipped when the variable is unset.
// Unlike the SQLite handle it has a real connection pool, so transactions
// run concurrently.
func NewPostgresDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := migrations.RunMigrations("postgres", dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := database.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`TRUNCATE matches, players RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return db
}
