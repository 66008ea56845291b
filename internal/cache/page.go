// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	pageKeyPrefix = "page:"

	// generationKey holds the counter that namespaces every page key.
	// Bumping it orphans all cached pages at once; they expire by TTL.
	generationKey = pageKeyPrefix + "generation"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache caches rendered card pages in Valkey. Concurrent misses for the
// same key render once. Valkey errors degrade to rendering uncached.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewPageCache creates a page cache. A zero ttl means DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// CardKey returns the cache key for a rendered card.
func CardKey(festivalID, templateID string, imageIndex int) string {
	return fmt.Sprintf("card:%s/%s/%d", festivalID, templateID, imageIndex)
}

// generation returns the current key namespace, "0" before the first
// invalidation.
func (pc *PageCache) generation(ctx context.Context) (string, error) {
	gen, err := pc.client.Get(ctx, generationKey).Result()
	if err == redis.Nil {
		return "0", nil
	}
	return gen, err
}

func (pc *PageCache) storageKey(gen, key string) string {
	return pageKeyPrefix + gen + ":" + key
}

// Get returns the cached page for key.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	gen, err := pc.generation(ctx)
	if err != nil {
		slog.Warn("page cache unavailable", "key", key, "error", err)
		return nil, false
	}
	val, err := pc.client.Get(ctx, pc.storageKey(gen, key)).Bytes()
	switch {
	case err == redis.Nil:
		return nil, false
	case err != nil:
		slog.Warn("page cache get failed", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key, "generation", gen)
	return val, true
}

// Set stores a page under key for the cache TTL.
func (pc *PageCache) Set(ctx context.Context, key string, page []byte) {
	gen, err := pc.generation(ctx)
	if err != nil {
		slog.Warn("page cache unavailable", "key", key, "error", err)
		return
	}
	if err := pc.client.Set(ctx, pc.storageKey(gen, key), page, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set failed", "key", key, "error", err)
	}
}

// GetOrRender returns the cached page for key or calls render, caching its
// result. Render errors are returned and nothing is cached.
func (pc *PageCache) GetOrRender(ctx context.Context, key string, render func() ([]byte, error)) ([]byte, error) {
	if page, ok := pc.Get(ctx, key); ok {
		return page, nil
	}
	v, err, _ := pc.group.Do(key, func() (any, error) {
		page, err := render()
		if err != nil {
			return nil, err
		}
		pc.Set(ctx, key, page)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidateAll drops every cached page by moving to a new generation. Used
// when the festival table is reloaded.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	gen, err := pc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		slog.Warn("page cache invalidation failed", "error", err)
		return
	}
	slog.Info("page cache invalidated", "generation", strconv.FormatInt(gen, 10))
}
