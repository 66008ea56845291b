// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"os"
	"testing"

	"tyohaarify/internal/database"
)

// testDSN points at the docker-compose Postgres unless TEST_DATABASE_URL
// overrides it.
func testDSN() string {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envOr("POSTGRES_USER", "tyohaarify"), envOr("POSTGRES_PASSWORD", "changeme")),
		Host:     net.JoinHostPort(envOr("POSTGRES_HOST", "localhost"), envOr("POSTGRES_PORT", "5432")),
		Path:     "/" + envOr("POSTGRES_DB", "tyohaarify"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB connects and migrates, skipping the test when Postgres is down.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect(context.Background(), testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if _, err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanFestival removes analytics events and shares recorded for a test
// festival id. Call in t.Cleanup().
func cleanFestival(t *testing.T, db *sql.DB, festivalID string) {
	t.Helper()
	db.Exec("DELETE FROM analytics_events WHERE festival_id = $1", festivalID)
	db.Exec("DELETE FROM shared_cards WHERE festival_id = $1", festivalID)
}
