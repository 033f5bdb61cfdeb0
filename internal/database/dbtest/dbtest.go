// Package dbtest connects tests to a scratch Postgres database.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"librarydesk/internal/database"
)

// Open returns a migrated database or skips the test when Postgres is unreachable.
// The connection comes from TEST_DATABASE_URL, falling back to the PG* variables.
// Tables are shared between packages, so tests must create their own rows with fresh keys.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Options{Driver: driver(), URL: url()})
	if err != nil {
		t.Skipf("skipping database tests: could not connect to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func driver() string {
	if d := os.Getenv("TEST_DATABASE_DRIVER"); d != "" {
		return d
	}
	return "postgres"
}

func url() string {
	if u := os.Getenv("TEST_DATABASE_URL"); u != "" {
		return u
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("PGUSER", "user"),
		getEnv("PGPASSWORD", "password"),
		getEnv("PGHOST", "localhost"),
		getEnv("PGPORT", "5432"),
		getEnv("PGDATABASE", "testdb"),
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
