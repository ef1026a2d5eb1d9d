package database

import (
	"context"
	"os"
	"testing"
)

// NewTestDB opens a migrated in-memory sqlite database that is closed when
// the test ends. Set TEST_DB_DRIVER=postgres and TEST_DB_DSN to run the same
// tests against postgres.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	driver, dsn := DriverSQLite, ":memory:"
	if os.Getenv("TEST_DB_DRIVER") == DriverPostgres {
		driver, dsn = DriverPostgres, os.Getenv("TEST_DB_DSN")
	}

	db, err := New(driver, dsn)
	if err != nil {
		if driver == DriverPostgres {
			t.Skipf("Could not connect to PostgreSQL for testing: %v", err)
		}
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}
