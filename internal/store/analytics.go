// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// analytics.go records UI events (card generated, exported, shared) and
// aggregates them per festival for the analytics tool.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tyohaarify/internal/models"
)

// AnalyticsStore handles analytics event persistence.
type AnalyticsStore struct {
	db *sql.DB
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(db *sql.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// Record inserts one event, filling ID and CreatedAt when empty.
func (s *AnalyticsStore) Record(ctx context.Context, e *models.AnalyticsEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (id, event, festival_id, template_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, string(e.Event), e.FestivalID, e.TemplateID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	slog.Debug("analytics event recorded", "event", e.Event, "festival", e.FestivalID)
	return nil
}

// FestivalStats counts generated, exported and shared events per festival.
// An empty festivalID aggregates every festival with events; rows are
// ordered by festival id.
func (s *AnalyticsStore) FestivalStats(ctx context.Context, festivalID string) ([]models.FestivalStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT festival_id,
		       COUNT(*) FILTER (WHERE event = $2),
		       COUNT(*) FILTER (WHERE event = $3),
		       COUNT(*) FILTER (WHERE event = $4)
		FROM analytics_events
		WHERE festival_id <> '' AND ($1 = '' OR festival_id = $1)
		GROUP BY festival_id
		ORDER BY festival_id
	`, festivalID, string(models.EventCardGenerated), string(models.EventCardExported), string(models.EventCardShared))
	if err != nil {
		return nil, fmt.Errorf("query festival stats: %w", err)
	}
	defer rows.Close()

	var stats []models.FestivalStats
	for rows.Next() {
		var st models.FestivalStats
		if err := rows.Scan(&st.FestivalID, &st.Generated, &st.Exported, &st.Shared); err != nil {
			return nil, fmt.Errorf("scan festival stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Purge deletes events older than cutoff and returns how many were removed.
func (s *AnalyticsStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge analytics events: %w", err)
	}
	return res.RowsAffected()
}
