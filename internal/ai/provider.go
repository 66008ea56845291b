// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai talks to hosted LLM providers (OpenAI, Mistral, Claude) to
// suggest greeting messages and to moderate user text. Every caller must
// work without a provider: the Registry reports ErrNoProvider and the
// Suggester falls back to canned messages.
package ai

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrNoProvider is returned when the active provider has no API key.
var ErrNoProvider = errors.New("ai: no provider configured")

// Provider turns a system and a user prompt into a completion.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

// ProviderConfig is what a provider needs to reach its API.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

var providerFactories = map[string]func(ProviderConfig) Provider{
	"openai":  func(c ProviderConfig) Provider { return newOpenAI(c) },
	"mistral": func(c ProviderConfig) Provider { return newMistral(c) },
	"claude":  func(c ProviderConfig) Provider { return newClaude(c) },
}

// Moderation endpoints, in the order they are tried.
var moderatorFactories = []struct {
	name string
	make func(apiKey, baseURL string) Moderator
}{
	{"openai", func(k, u string) Moderator { return newOpenAIModerator(k, u) }},
	{"mistral", func(k, u string) Moderator { return newMistralModerator(k, u) }},
}

// Registry resolves the configured provider and moderator. Safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	active    string
	providers map[string]Provider
	moderator Moderator
}

// NewRegistry builds a provider for every config carrying an API key.
// Unknown names are ignored. active names the provider Generate uses.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{active: active, providers: map[string]Provider{}}
	for name, cfg := range configs {
		factory, ok := providerFactories[name]
		if ok && cfg.APIKey != "" {
			r.providers[name] = factory(cfg)
		}
	}

	var mods []Moderator
	for _, f := range moderatorFactories {
		if cfg := configs[f.name]; cfg.APIKey != "" {
			mods = append(mods, f.make(cfg.APIKey, cfg.BaseURL))
		}
	}
	if len(mods) == 1 {
		r.moderator = mods[0]
	} else if len(mods) > 1 {
		r.moderator = fallbackModerator(mods)
	}
	return r
}

// Generate sends the prompts to the active provider.
func (r *Registry) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p, err := r.Active()
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, systemPrompt, userPrompt)
}

// Active returns the provider named at construction, or ErrNoProvider when
// it has no key.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	p := r.providers[r.active]
	r.mu.RUnlock()
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoProvider, r.active)
	}
	return p, nil
}

// Available lists the configured provider names in order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetModerator replaces the moderation client. A nil moderator disables
// moderation.
func (r *Registry) SetModerator(m Moderator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderator = m
}

// Moderates reports whether a moderation client is configured.
func (r *Registry) Moderates() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.moderator != nil
}

// CheckText runs text through the moderation API. Without a moderator
// every text is reported safe.
func (r *Registry) CheckText(ctx context.Context, text string) (*ModerationResult, error) {
	r.mu.RLock()
	m := r.moderator
	r.mu.RUnlock()

	if m == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return m.CheckSafety(ctx, text)
}
