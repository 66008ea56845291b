// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()
	host := os.Getenv("VALKEY_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("VALKEY_PORT")
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, valkeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

// exerciseStorage checks the CacheStorage contract shared by every backend.
func exerciseStorage(t *testing.T, s CacheStorage) {
	ctx := context.Background()
	req, _ := http.NewRequest(http.MethodGet, "http://origin.test/static/css/app.css?v=1", nil)

	c, err := s.Open(ctx, "test-static")
	require.NoError(t, err)
	_, err = c.Match(ctx, req)
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, c.Put(ctx, req, &Entry{Status: 200, Header: http.Header{"Content-Type": {"text/css"}}, Body: []byte("a")}))
	require.NoError(t, c.Put(ctx, req, &Entry{Status: 200, Header: http.Header{"Content-Type": {"text/css"}}, Body: []byte("b")}))
	e, err := c.Match(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), e.Body, "last write wins")
	assert.Equal(t, "text/css", e.Header.Get("Content-Type"))

	head, _ := http.NewRequest(http.MethodHead, req.URL.String(), nil)
	_, err = c.Match(ctx, head)
	assert.ErrorIs(t, err, ErrNotCached, "method is part of the key")

	_, err = s.Open(ctx, "test-dynamic")
	require.NoError(t, err)
	names, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"test-dynamic", "test-static"}, names)

	ok, err := s.Delete(ctx, "test-static")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "test-static")
	require.NoError(t, err)
	assert.False(t, ok)

	c, _ = s.Open(ctx, "test-static")
	_, err = c.Match(ctx, req)
	assert.ErrorIs(t, err, ErrNotCached, "deleted caches come back empty")
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestValkeyStorage(t *testing.T) {
	exerciseStorage(t, NewValkeyStorage(testValkeyClient(t)))
}
