// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tyohaarify/internal/models"
)

const (
	// DefaultDebounce is the quiet period before a preview regenerates.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultIdleTimeout is how long an unobserved session is kept.
	DefaultIdleTimeout = 30 * time.Minute
)

// Hub tracks live editor sessions by id.
type Hub struct {
	gen      *Generator
	debounce time.Duration
	idle     time.Duration
	onChange func(id string, state models.CardState)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub creates a hub. Zero durations select the defaults. onChange, when
// non-nil, is called after each successful regeneration so callers can
// persist the snapshot.
func NewHub(gen *Generator, debounce, idle time.Duration, onChange func(id string, state models.CardState)) *Hub {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Hub{
		gen:      gen,
		debounce: debounce,
		idle:     idle,
		onChange: onChange,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it from seed when absent.
func (h *Hub) Get(id string, seed models.CardState) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		return s
	}
	s := newSession(id, h.gen, h.debounce, seed, time.Now())
	s.onChange = h.onChange
	h.sessions[id] = s
	slog.Debug("editor session opened", "session", id)
	return s
}

// Lookup returns an existing session.
func (h *Hub) Lookup(id string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sweep closes sessions that have no subscribers and were last used before
// now minus the idle timeout. It returns the number closed.
func (h *Hub) Sweep(now time.Time) int {
	cutoff := now.Add(-h.idle)

	h.mu.Lock()
	var expired []*Session
	for id, s := range h.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		slog.Debug("idle editor sessions closed", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions periodically until ctx is cancelled, then closes
// every session.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case now := <-ticker.C:
			h.Sweep(now)
		}
	}
}

// Close closes and forgets every session.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
