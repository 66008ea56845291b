// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session keeps editor sessions in Valkey. A cookie carries a
// random id; the session hash holds the tab's last card inputs so a reload
// restores the current selection. Sessions expire after a week of
// inactivity.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tyohaarify/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "tyo_session"

	// DefaultTTL is how long an untouched session lives.
	DefaultTTL = 7 * 24 * time.Hour

	keyPrefix = "session:"

	fieldCard    = "card"
	fieldCreated = "created_at"
	fieldUpdated = "updated_at"
)

// Data is a stored session.
type Data struct {
	Card      models.CardState `json:"card"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store manages sessions in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewStore creates a session store. secure marks the cookie Secure, which
// deployments behind TLS need.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure, now: time.Now}
}

// ID returns the session id from the request cookie, or "" when the cookie
// is absent or not a session id.
func ID(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// Ensure returns the request's session, creating one seeded with seed (and
// setting the cookie) when the cookie is missing or its session expired.
func (s *Store) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request, seed models.CardState) (string, *Data, error) {
	if id := ID(r); id != "" {
		data, err := s.Load(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if data != nil {
			return id, data, nil
		}
	}

	id := uuid.NewString()
	if err := s.SaveCard(ctx, id, seed); err != nil {
		return "", nil, err
	}
	now := s.now()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return id, &Data{Card: seed.Inputs(), CreatedAt: now, UpdatedAt: now}, nil
}

// Load returns the session with id, or nil when it does not exist.
func (s *Store) Load(ctx context.Context, id string) (*Data, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	raw, ok := fields[fieldCard]
	if !ok {
		return nil, nil
	}

	data := &Data{}
	if err := json.Unmarshal([]byte(raw), &data.Card); err != nil {
		return nil, fmt.Errorf("session %s: decode card: %w", id, err)
	}
	data.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreated])
	data.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdated])
	return data, nil
}

// SaveCard stores the card inputs for the session and restarts its TTL.
// Generated HTML is not stored; it is recomputed on load.
func (s *Store) SaveCard(ctx context.Context, id string, card models.CardState) error {
	payload, err := json.Marshal(card.Inputs())
	if err != nil {
		return fmt.Errorf("session %s: encode card: %w", id, err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	key := keyPrefix + id

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldCard, payload, fieldUpdated, now)
		pipe.HSetNX(ctx, key, fieldCreated, now)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session %s: save: %w", id, err)
	}
	return nil
}
