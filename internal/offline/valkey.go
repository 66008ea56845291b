// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/redis/go-redis/v9"
)

const (
	// valkeyPrefix namespaces edge cache keys: sw:{cache}:{method} {url}.
	valkeyPrefix = "sw:"

	// valkeyNames is the set holding every cache name.
	valkeyNames = valkeyPrefix + "caches"
)

// ValkeyStorage keeps caches in Valkey so several edge processes share them
// and they survive restarts.
type ValkeyStorage struct {
	client *redis.Client
}

// NewValkeyStorage returns a cache storage backed by client.
func NewValkeyStorage(client *redis.Client) *ValkeyStorage {
	return &ValkeyStorage{client: client}
}

// Open registers the cache name and returns a handle to it.
func (s *ValkeyStorage) Open(ctx context.Context, name string) (Cache, error) {
	if err := s.client.SAdd(ctx, valkeyNames, name).Err(); err != nil {
		return nil, fmt.Errorf("open cache %s: %w", name, err)
	}
	return &valkeyCache{client: s.client, prefix: valkeyPrefix + name + ":"}, nil
}

// Delete removes every entry of the named cache and its name.
func (s *ValkeyStorage) Delete(ctx context.Context, name string) (bool, error) {
	removed, err := s.client.SRem(ctx, valkeyNames, name).Result()
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, valkeyPrefix+name+":*", 100).Result()
		if err != nil {
			return removed > 0, fmt.Errorf("delete cache %s: scan: %w", name, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return removed > 0, fmt.Errorf("delete cache %s: %w", name, err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed > 0, nil
}

// Keys returns the cache names in sorted order.
func (s *ValkeyStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, valkeyNames).Result()
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

type valkeyCache struct {
	client *redis.Client
	prefix string
}

func (c *valkeyCache) Match(ctx context.Context, req *http.Request) (*Entry, error) {
	raw, err := c.client.Get(ctx, c.prefix+requestKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("cache match: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("cache match: decode: %w", err)
	}
	return &e, nil
}

func (c *valkeyCache) Put(ctx context.Context, req *http.Request, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache put: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+requestKey(req), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
