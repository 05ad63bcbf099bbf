package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const migrationsTable = "schema_migrations_migrate"

//go:embed postgres/*.sql sqlite3/*.sql
var files embed.FS

// RunMigrations applies the embedded migrations for driverName ("postgres"
// or "sqlite3") on a dedicated connection. On postgres it baselines the DB to
// the latest migration if the schema already exists but migrate's metadata
// table is missing.
func RunMigrations(driverName, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sqlx.Open(driverName, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer db.Close()

	src, err := iofs.New(files, driverName)
	if err != nil {
		return fmt.Errorf("no migrations for driver %q: %w", driverName, err)
	}

	var driver database.Driver
	switch driverName {
	case "postgres":
		driver, err = pg.WithInstance(db.DB, &pg.Config{MigrationsTable: migrationsTable})
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{MigrationsTable: migrationsTable})
	default:
		return fmt.Errorf("unsupported driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if driverName == "postgres" {
		baseline(db, m, driverName)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	log.Printf("[MIGRATE] Migrations applied (no changes or up completed)")
	return nil
}

func baseline(db *sqlx.DB, m *migrate.Migrate, dir string) {
	var matchesExist bool
	if err := db.Get(&matchesExist, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='matches')"); err != nil || !matchesExist {
		return
	}

	var migrateTableExist bool
	if err := db.Get(&migrateTableExist, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", migrationsTable); err != nil || migrateTableExist {
		return
	}

	latest := findLatestMigrationVersion(files, dir)
	if latest == 0 {
		return
	}

	log.Printf("[MIGRATE] Baseline DB to version %d (existing schema present)", latest)
	if err := m.Force(int(latest)); err != nil {
		log.Printf("[MIGRATE] Force to version %d failed: %v", latest, err)
	}
}

var versionPrefix = regexp.MustCompile(`^0*([0-9]+)_`)

// findLatestMigrationVersion scans dir for files that start with a numeric
// version prefix (e.g. 000001_) and returns the highest version number.
func findLatestMigrationVersion(fsys fs.FS, dir string) int64 {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0
	}

	var max int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := versionPrefix.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}

	return max
}
