// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// The default environment runs without PostgreSQL or Valkey; tests that
// need Valkey are skipped when it is unavailable.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"tyohaarify/internal/export"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/models"
	"tyohaarify/internal/render"
	"tyohaarify/internal/store"
	"tyohaarify/internal/tools"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "page:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})
	return client
}

// recordedEvents collects analytics events in memory.
type recordedEvents struct {
	mu     sync.Mutex
	events []models.AnalyticsEvent
	err    error
}

func (r *recordedEvents) Record(_ context.Context, e *models.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *recordedEvents) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventType
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

// memoryObjects is an in-memory export.ObjectStore.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Upload(_ context.Context, bucket, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memoryObjects) PublicBucket() string      { return "public" }
func (m *memoryObjects) FileURL(key string) string { return "https://cdn.test/" + key }

// memoryShares records and opens shared cards in memory.
type memoryShares struct {
	mu    sync.Mutex
	cards map[string]*models.SharedCard
}

func (m *memoryShares) CreateSharedCard(_ context.Context, c *models.SharedCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cards == nil {
		m.cards = make(map[string]*models.SharedCard)
	}
	m.cards[c.Token] = c
	return nil
}

func (m *memoryShares) Open(_ context.Context, token string) (*models.SharedCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[token]
	if !ok {
		return nil, store.ErrShareNotFound
	}
	c.AccessCount++
	return c, nil
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Festivals *festival.Store
	Generator *generator.Generator
	Hub       *generator.Hub
	Renderer  *render.Renderer
	Events    *recordedEvents
	Objects   *memoryObjects
	Shares    *memoryShares
	API       *API
	Exports   *Exports
	Pages     *Pages
}

// newTestEnv creates a complete in-memory handler environment.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	festivals, err := festival.NewDefault()
	if err != nil {
		t.Fatalf("festival.NewDefault: %v", err)
	}
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	gen := generator.New(festivals)
	hub := generator.NewHub(gen, 20*time.Millisecond, time.Minute, nil)
	t.Cleanup(hub.Close)

	events := &recordedEvents{}
	objects := &memoryObjects{}
	shares := &memoryShares{}
	exporter := export.New(gen, export.WithTimeout(20*time.Second))
	sharer := export.NewSharer(objects, shares, "https://cards.test")

	return &testEnv{
		Festivals: festivals,
		Generator: gen,
		Hub:       hub,
		Renderer:  renderer,
		Events:    events,
		Objects:   objects,
		Shares:    shares,
		API:       NewAPI(tools.NewService(gen, nil, nil), festivals, nil, events, 0, "test"),
		Exports:   NewExports(gen, exporter, sharer, shares, objects, events),
		Pages:     NewPages(renderer, gen, hub, nil, nil, events),
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// postJSON builds a JSON POST request.
func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a JSON response body into a map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, strings.TrimSpace(rec.Body.String()))
	}
}
