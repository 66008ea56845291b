// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tyohaarify/internal/models"
)

// ErrShareNotFound is returned when no share row has the token.
var ErrShareNotFound = errors.New("shared card not found")

// SharedCardStore handles share link persistence.
type SharedCardStore struct {
	db *sql.DB
}

// NewSharedCardStore creates a new SharedCardStore.
func NewSharedCardStore(db *sql.DB) *SharedCardStore {
	return &SharedCardStore{db: db}
}

// CreateSharedCard inserts a share row.
func (s *SharedCardStore) CreateSharedCard(ctx context.Context, c *models.SharedCard) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_cards (id, token, festival_id, s3_key, content_type, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Token, c.FestivalID, c.S3Key, c.ContentType, c.CreatedAt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert shared card: %w", err)
	}
	return nil
}

// Open looks up a share by token and counts the access in the same
// statement. Expired rows are returned as is; callers check Expired.
func (s *SharedCardStore) Open(ctx context.Context, token string) (*models.SharedCard, error) {
	var c models.SharedCard
	err := s.db.QueryRowContext(ctx, `
		UPDATE shared_cards
		SET access_count = access_count + 1, last_accessed_at = now()
		WHERE token = $1
		RETURNING id, token, festival_id, s3_key, content_type, created_at,
		          expires_at, last_accessed_at, access_count
	`, token).Scan(&c.ID, &c.Token, &c.FestivalID, &c.S3Key, &c.ContentType, &c.CreatedAt,
		&c.ExpiresAt, &c.LastAccessedAt, &c.AccessCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrShareNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("open shared card: %w", err)
	}
	return &c, nil
}

// DeleteExpired removes rows whose expiry is before now and returns their
// object keys so the caller can delete the stored files.
func (s *SharedCardStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM shared_cards WHERE expires_at IS NOT NULL AND expires_at < $1
		RETURNING s3_key
	`, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired shares: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan expired share: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
