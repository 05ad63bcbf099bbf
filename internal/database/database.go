package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect establishes the process-wide database handle. driver is
// "postgres" in production; "sqlite3" is supported for local runs and tests.
func Connect(driver, databaseURL string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if driver == "sqlite3" {
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases from splitting per connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
