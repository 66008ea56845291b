// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tyohaarify/internal/models"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("expected session cookie to be set")
	return nil
}

func TestEnsureCreatesSession(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	seed := models.CardState{TemplateID: "classic"}
	id, data, err := store.Ensure(ctx, w, httptest.NewRequest("GET", "/create", nil), seed)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id == "" || data == nil {
		t.Fatal("expected a new session")
	}
	if data.Card != seed {
		t.Errorf("card = %+v, want seed", data.Card)
	}

	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if cookie.Secure {
		t.Error("expected Secure=false for non-secure store")
	}

	// The same cookie resolves to the same session without a new cookie.
	req := httptest.NewRequest("GET", "/create", nil)
	req.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	again, _, err := store.Ensure(ctx, w2, req, models.CardState{})
	if err != nil {
		t.Fatalf("Ensure (existing): %v", err)
	}
	if again != id {
		t.Errorf("id = %q, want %q", again, id)
	}
	if len(w2.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for an existing session")
	}
}

func TestSaveCardRoundTrip(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()
	id := uuid.NewString()

	created := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return created }
	card := models.CardState{
		FestivalID:    "diwali",
		TemplateID:    "royal",
		ImageIndex:    2,
		Message:       "Shubh Deepavali",
		SenderName:    "Asha",
		GeneratedHTML: "<!DOCTYPE html>",
	}
	if err := store.SaveCard(ctx, id, card); err != nil {
		t.Fatalf("SaveCard: %v", err)
	}

	// A later save keeps the creation time.
	store.now = func() time.Time { return created.Add(time.Hour) }
	card.Message = "Happy Diwali"
	if err := store.SaveCard(ctx, id, card); err != nil {
		t.Fatalf("SaveCard: %v", err)
	}

	data, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data == nil {
		t.Fatal("expected stored session")
	}
	if data.Card != card.Inputs() {
		t.Errorf("card = %+v, want %+v", data.Card, card.Inputs())
	}
	if !data.CreatedAt.Equal(created) || !data.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Errorf("times = %v / %v", data.CreatedAt, data.UpdatedAt)
	}

	ttl, err := store.client.TTL(ctx, keyPrefix+id).Result()
	if err != nil || ttl <= 0 || ttl > DefaultTTL {
		t.Errorf("ttl = %v, %v", ttl, err)
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)

	data, err := store.Load(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data != nil {
		t.Error("expected nil for expired/nonexistent session")
	}
}

func TestEnsureReplacesForgedCookie(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)

	req := httptest.NewRequest("GET", "/create", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "page:generation"})
	w := httptest.NewRecorder()
	id, _, err := store.Ensure(context.Background(), w, req, models.CardState{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id == "page:generation" {
		t.Fatal("a non-uuid cookie must not address a Valkey key")
	}
	if sessionCookie(t, w).Value != id {
		t.Error("expected a fresh cookie")
	}
}

func TestSecureCookie(t *testing.T) {
	store := NewStore(testValkeyClient(t), true)

	w := httptest.NewRecorder()
	if _, _, err := store.Ensure(context.Background(), w, httptest.NewRequest("GET", "/", nil), models.CardState{}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !sessionCookie(t, w).Secure {
		t.Error("expected Secure=true for secure store")
	}
}

func TestID(t *testing.T) {
	valid := uuid.NewString()
	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{"no cookie", "", ""},
		{"uuid", valid, valid},
		{"not a uuid", "abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if got := ID(req); got != tt.want {
				t.Errorf("ID = %q, want %q", got, tt.want)
			}
		})
	}
}
