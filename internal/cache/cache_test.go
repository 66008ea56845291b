// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "page:*").Result()
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

func TestConnectValkey(t *testing.T) {
	opts := ValkeyOptions{
		Host:     envOr("VALKEY_HOST", "localhost"),
		Port:     envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	}
	client, err := ConnectValkey(context.Background(), opts)
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	// Verify connection.
	ctx := context.Background()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestConnectValkeyUnreachable(t *testing.T) {
	_, err := ConnectValkey(context.Background(), ValkeyOptions{Host: "127.0.0.1", Port: "1"})
	if err == nil {
		t.Fatal("expected error for closed port")
	}
}

func TestValkeyOptionsAddr(t *testing.T) {
	if got := (ValkeyOptions{Host: "::1", Port: "6379"}).Addr(); got != "[::1]:6379" {
		t.Errorf("Addr: got %q", got)
	}
}

func TestPageCacheSetAndGet(t *testing.T) {
	pc := NewPageCache(testValkeyClient(t), time.Minute)
	ctx := context.Background()
	key := CardKey("diwali", "classic", 0)

	if _, ok := pc.Get(ctx, key); ok {
		t.Fatal("expected a miss on an empty cache")
	}
	pc.Set(ctx, key, []byte("<html>card</html>"))
	got, ok := pc.Get(ctx, key)
	if !ok || string(got) != "<html>card</html>" {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestPageCacheGetOrRender(t *testing.T) {
	pc := NewPageCache(testValkeyClient(t), time.Minute)
	ctx := context.Background()
	key := CardKey("holi", "neon", 1)

	var calls atomic.Int32
	render := func() ([]byte, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("holi"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := pc.GetOrRender(ctx, key, render)
			if err != nil || string(page) != "holi" {
				t.Errorf("got %q, %v", page, err)
			}
		}()
	}
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Errorf("render ran %d times, want 1", n)
	}

	// Later calls are served from Valkey.
	if _, err := pc.GetOrRender(ctx, key, render); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("render ran again on a cached key")
	}
}

func TestPageCacheRenderErrorNotCached(t *testing.T) {
	pc := NewPageCache(testValkeyClient(t), time.Minute)
	ctx := context.Background()
	key := CardKey("eid", "classic", 9)
	boom := errors.New("image out of range")

	if _, err := pc.GetOrRender(ctx, key, func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v, want render error", err)
	}
	if _, ok := pc.Get(ctx, key); ok {
		t.Error("failed render should not be cached")
	}
}

func TestPageCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	pc := NewPageCache(client, time.Minute)
	ctx := context.Background()

	keys := []string{CardKey("diwali", "classic", 0), CardKey("christmas", "minimal", 2)}
	for _, k := range keys {
		pc.Set(ctx, k, []byte(k))
	}
	pc.InvalidateAll(ctx)
	for _, k := range keys {
		if _, ok := pc.Get(ctx, k); ok {
			t.Errorf("expected miss for %q after InvalidateAll", k)
		}
	}

	// Pages written after the bump are visible again.
	pc.Set(ctx, keys[0], []byte("fresh"))
	if got, ok := pc.Get(ctx, keys[0]); !ok || string(got) != "fresh" {
		t.Errorf("got %q, %v after re-caching", got, ok)
	}
}

func TestPageCacheValkeyDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	pc := NewPageCache(client, time.Minute)

	page, err := pc.GetOrRender(context.Background(), CardKey("pongal", "classic", 0), func() ([]byte, error) {
		return []byte("rendered"), nil
	})
	if err != nil || string(page) != "rendered" {
		t.Errorf("got %q, %v; an unreachable cache should fall back to rendering", page, err)
	}
}

func TestCardKey(t *testing.T) {
	if got := CardKey("diwali", "classic", 1); got != "card:diwali/classic/1" {
		t.Errorf("CardKey: got %q", got)
	}
}

func TestNewPageCacheDefaultTTL(t *testing.T) {
	pc := NewPageCache(nil, 0)
	if pc.ttl != DefaultPageTTL {
		t.Errorf("ttl: got %v, want %v", pc.ttl, DefaultPageTTL)
	}
}
