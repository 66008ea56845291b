// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"tyohaarify/internal/models"
)

// RefreshNotice is published when a regeneration fails. The previous
// preview stays current.
const RefreshNotice = "Could not update the preview. Please try again."

// PreviewEvent is pushed to subscribers after every regeneration attempt.
type PreviewEvent struct {
	HTML   string `json:"html,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// subscriberBuffer is how many undelivered events a slow subscriber may hold
// before further events are dropped for it.
const subscriberBuffer = 4

// Session owns the card state of one editor tab.
type Session struct {
	id       string
	gen      *Generator
	debounce *Debouncer
	onChange func(id string, state models.CardState)

	mu       sync.Mutex
	state    models.CardState
	preview  string
	subs     map[chan PreviewEvent]struct{}
	lastSeen time.Time
	closed   bool
}

func newSession(id string, gen *Generator, delay time.Duration, seed models.CardState, now time.Time) *Session {
	return &Session{
		id:       id,
		gen:      gen,
		debounce: NewDebouncer(delay),
		state:    seed,
		preview:  seed.GeneratedHTML,
		subs:     make(map[chan PreviewEvent]struct{}),
		lastSeen: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current snapshot.
func (s *Session) State() models.CardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Preview returns the last successfully generated HTML.
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Apply reduces action into the session state and schedules a debounced
// regeneration when the inputs changed.
func (s *Session) Apply(action Action) models.CardState {
	s.mu.Lock()
	prev := s.state
	s.state = s.gen.Reduce(prev, action)
	next := s.state
	s.lastSeen = time.Now()
	s.mu.Unlock()

	if next.Inputs() != prev.Inputs() {
		s.debounce.Trigger(func() { s.regenerate() })
	}
	return next
}

// Flush cancels any pending regeneration and regenerates now, returning the
// event that was published.
func (s *Session) Flush() PreviewEvent {
	s.debounce.Cancel()
	return s.regenerate()
}

func (s *Session) regenerate() PreviewEvent {
	s.mu.Lock()
	snapshot := s.state
	s.mu.Unlock()

	generated, err := s.gen.Generate(snapshot)
	if errors.Is(err, ErrIdle) {
		return PreviewEvent{}
	}
	if err != nil {
		slog.Warn("preview generation failed", "session", s.id, "festival", snapshot.FestivalID, "error", err)
		ev := PreviewEvent{Notice: RefreshNotice}
		s.publish(ev)
		return ev
	}

	s.mu.Lock()
	if s.state.Inputs() != snapshot.Inputs() {
		// A newer edit arrived while rendering; its own regeneration will publish.
		s.mu.Unlock()
		return PreviewEvent{HTML: generated.GeneratedHTML}
	}
	s.state = generated
	s.preview = generated.GeneratedHTML
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(s.id, generated)
	}
	ev := PreviewEvent{HTML: generated.GeneratedHTML}
	s.publish(ev)
	return ev
}

// Subscribe registers for preview events. The returned function
// unsubscribes and must be called exactly once.
func (s *Session) Subscribe() (<-chan PreviewEvent, func()) {
	ch := make(chan PreviewEvent, subscriberBuffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.lastSeen = time.Now()
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

func (s *Session) publish(ev PreviewEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("preview subscriber lagging, event dropped", "session", s.id)
		}
	}
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && s.lastSeen.Before(cutoff)
}

// Close stops pending work and closes all subscriber channels.
func (s *Session) Close() {
	s.debounce.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
