// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// domainTables lists every table the stores write, children first.
var domainTables = []string{"quizzes", "news_articles", "categories", "feed_articles"}

// TestDB is a connection to the integration test database.
type TestDB struct {
	*sql.DB
	t *testing.T
}

// testDSN prefers TEST_DATABASE_URL and otherwise builds a key/value DSN
// from the DB_* variables.
func testDSN() string {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	parts := []string{
		"host=" + envOr("DB_HOST", "localhost"),
		"port=" + envOr("DB_PORT", "5432"),
		"user=" + envOr("DB_USER", "test"),
		"password=" + envOr("DB_PASSWORD", "test"),
		"dbname=" + envOr("DB_NAME", "newsdesk_test"),
		"sslmode=" + envOr("DB_SSLMODE", "disable"),
	}
	return strings.Join(parts, " ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewTestDB connects to Postgres, or skips the test when -short is set or no
// server is reachable. The schema is created by the caller via Migrate.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := sql.Open("postgres", testDSN())
	if err != nil {
		t.Skipf("Skipping test: unable to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	return &TestDB{DB: db, t: t}
}

func (tdb *TestDB) Close() {
	if err := tdb.DB.Close(); err != nil {
		tdb.t.Errorf("Failed to close test database: %v", err)
	}
}

// Cleanup empties every domain table that exists.
func (tdb *TestDB) Cleanup(ctx context.Context) {
	tdb.t.Helper()

	for _, table := range domainTables {
		var exists bool
		err := tdb.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		if err != nil || !exists {
			continue
		}
		if _, err := tdb.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s CASCADE", table)); err != nil {
			tdb.t.Logf("Warning: failed to truncate %s: %v", table, err)
		}
	}
}
