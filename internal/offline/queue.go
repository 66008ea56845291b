// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"tyohaarify/internal/models"
)

// DefaultQueueFile is the SQLite file name used when no path is configured.
const DefaultQueueFile = "tyohaarify-offline.db"

// queueSchemaVersion is the latest schema version; bump when adding migrations.
const queueSchemaVersion = 1

// Queue is the durable store of card-creation requests waiting for sync.
type Queue struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// OpenQueue opens (creating if needed) the queue database at path.
func OpenQueue(path string) (*Queue, error) {
	if path == "" {
		path = DefaultQueueFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create queue directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	if err := migrateQueue(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Queue{
		db:      db,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// migrateQueue applies schema migrations based on user_version.
func migrateQueue(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read queue schema version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS pending_cards (
		  id           TEXT PRIMARY KEY,
		  method       TEXT NOT NULL,
		  url          TEXT NOT NULL,
		  headers_json TEXT NOT NULL,
		  body         BLOB,
		  attempts     INTEGER NOT NULL DEFAULT 0,
		  created_at   INTEGER NOT NULL,
		  last_attempt INTEGER
		);`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migrate queue to v1: %w", err)
		}
	}

	if version < queueSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", queueSchemaVersion)); err != nil {
			return fmt.Errorf("set queue schema version: %w", err)
		}
	}
	return nil
}

func (q *Queue) newID(at time.Time) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), q.entropy).String()
}

// Enqueue stores card, assigning its ID and creation time.
func (q *Queue) Enqueue(ctx context.Context, card *models.PendingCard) error {
	now := q.now()
	card.ID = q.newID(now)
	card.CreatedAt = now

	headers, err := json.Marshal(card.Header)
	if err != nil {
		return fmt.Errorf("enqueue: encode headers: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO pending_cards (id, method, url, headers_json, body, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.Method, card.URL, string(headers), card.Body, card.Attempts, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// List returns every pending card, oldest first.
func (q *Queue) List(ctx context.Context) ([]models.PendingCard, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, method, url, headers_json, body, attempts, created_at, last_attempt
		 FROM pending_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var cards []models.PendingCard
	for rows.Next() {
		var (
			c       models.PendingCard
			headers string
			created int64
			last    sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Method, &c.URL, &headers, &c.Body, &c.Attempts, &created, &last); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		if err := json.Unmarshal([]byte(headers), &c.Header); err != nil {
			return nil, fmt.Errorf("decode pending headers %s: %w", c.ID, err)
		}
		c.CreatedAt = time.UnixMilli(created)
		if last.Valid {
			t := time.UnixMilli(last.Int64)
			c.LastAttempt = &t
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Len returns the number of pending cards.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// Delete removes a delivered card.
func (q *Queue) Delete(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM pending_cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending %s: %w", id, err)
	}
	return nil
}

// MarkAttempt records a failed delivery attempt.
func (q *Queue) MarkAttempt(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pending_cards SET attempts = attempts + 1, last_attempt = ? WHERE id = ?`,
		q.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark attempt %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (q *Queue) Close() error {
	return q.db.Close()
}
