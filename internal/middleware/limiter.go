// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryLimiter is a sliding-window limiter for a single process. Stale
// clients are swept once per window.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryLimiter allows limit requests per client in any window. Call
// Stop to end the sweeper.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow records a request for key if it fits in the window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := dropBefore(l.clients[key], cutoff)
	d := Decision{Limit: l.limit}
	if len(hits) >= l.limit {
		l.clients[key] = hits
		d.RetryAfter = hits[0].Sub(cutoff)
		return d, nil
	}
	hits = append(hits, now)
	l.clients[key] = hits
	d.Allowed = true
	d.Remaining = l.limit - len(hits)
	return d, nil
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) sweepLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets clients with no request inside the window.
func (l *MemoryLimiter) sweep() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.clients {
		if hits = dropBefore(hits, cutoff); len(hits) == 0 {
			delete(l.clients, key)
		} else {
			l.clients[key] = hits
		}
	}
}

// dropBefore returns hits without the timestamps at or before cutoff. hits
// is sorted oldest first.
func dropBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// ValkeyLimiter is a fixed-window limiter shared by every replica that
// uses the same Valkey database.
type ValkeyLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewValkeyLimiter allows limit requests per client per window.
func NewValkeyLimiter(client *redis.Client, limit int, window time.Duration) *ValkeyLimiter {
	return &ValkeyLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow counts a request for key in the current window.
func (l *ValkeyLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.window)
	counter := fmt.Sprintf("ratelimit:%s:%d", key, start.UnixMilli())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, counter)
		pipe.PExpire(ctx, counter, l.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := int(incr.Val())
	d := Decision{Limit: l.limit, Remaining: max(l.limit-count, 0)}
	if count > l.limit {
		d.RetryAfter = start.Add(l.window).Sub(now)
		return d, nil
	}
	d.Allowed = true
	return d, nil
}
