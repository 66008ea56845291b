// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tyohaarify/internal/models"
)

const (
	// MaxSuggestions is the number of messages returned per request.
	MaxSuggestions = 3

	suggestionTokens      = 512
	suggestionTemperature = 0.8
	maxSuggestionLen      = 280
)

// Tones accepted by Suggest. Anything else is treated as "warm".
var Tones = []string{"warm", "formal", "playful", "spiritual"}

const suggestSystemPrompt = `You write short festival greeting card messages.
Reply with exactly %d messages, one per line, no numbering, no quotes.
Each message is at most 40 words and mentions the festival by name.`

// Suggestion is one generated greeting message.
type Suggestion struct {
	Text   string `json:"text"`
	Source string `json:"source"` // provider name or "canned"
}

// Suggester produces greeting messages for a festival.
type Suggester struct {
	registry *Registry
}

// NewSuggester returns a Suggester. A nil registry always yields canned
// suggestions.
func NewSuggester(registry *Registry) *Suggester {
	return &Suggester{registry: registry}
}

// Suggest asks the active provider for messages. Any provider failure is
// logged and answered with the canned set, so it never returns an error.
func (s *Suggester) Suggest(ctx context.Context, f *models.Festival, tone, recipient string) []Suggestion {
	tone = normalizeTone(tone)
	recipient = strings.TrimSpace(recipient)

	if s.registry != nil {
		p, err := s.registry.Active()
		if err == nil {
			text, err := p.Generate(ctx, fmt.Sprintf(suggestSystemPrompt, MaxSuggestions), userPrompt(f, tone, recipient))
			if err == nil {
				if out := parseSuggestions(text, p.Name()); len(out) > 0 {
					return out
				}
			}
			slog.Warn("ai suggestion failed, using canned messages", "provider", p.Name(), "festival", f.ID, "error", err)
		}
	}
	return Canned(f, tone, recipient)
}

func userPrompt(f *models.Festival, tone, recipient string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Festival: %s (%s).\n", f.Name, f.Region)
	if f.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", f.Description)
	}
	fmt.Fprintf(&b, "Tone: %s.\n", tone)
	if recipient != "" {
		fmt.Fprintf(&b, "Recipient: %s.\n", recipient)
	}
	return b.String()
}

// parseSuggestions splits a reply into at most MaxSuggestions lines,
// stripping list markers and surrounding quotes.
func parseSuggestions(text, source string) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		line = strings.Trim(line, `"'`)
		if line == "" {
			continue
		}
		if len(line) > maxSuggestionLen {
			line = line[:maxSuggestionLen]
		}
		out = append(out, Suggestion{Text: line, Source: source})
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func normalizeTone(tone string) string {
	tone = strings.ToLower(strings.TrimSpace(tone))
	for _, t := range Tones {
		if t == tone {
			return t
		}
	}
	return "warm"
}

var cannedByTone = map[string][]string{
	"warm": {
		"Wishing you a joyful %s filled with love and laughter.",
		"May this %s bring you closer to the people you cherish.",
	},
	"formal": {
		"Warm regards and best wishes on the occasion of %s.",
		"Wishing you and your family a prosperous %s.",
	},
	"playful": {
		"Eat, laugh, repeat. Happy %s!",
		"Sending you a box of good vibes this %s.",
	},
	"spiritual": {
		"May the blessings of %s light your path.",
		"Wishing you peace and grace this %s.",
	},
}

// Canned returns the offline suggestion set: the festival default message
// followed by messages for the tone, addressed to recipient when given.
func Canned(f *models.Festival, tone, recipient string) []Suggestion {
	tone = normalizeTone(tone)
	out := make([]Suggestion, 0, MaxSuggestions)
	if f.DefaultMessage != "" {
		out = append(out, Suggestion{Text: f.DefaultMessage, Source: "canned"})
	}
	for _, tmpl := range cannedByTone[tone] {
		if len(out) == MaxSuggestions {
			break
		}
		text := fmt.Sprintf(tmpl, f.Name)
		if recipient != "" {
			text = "Dear " + recipient + ", " + lowerFirst(text)
		}
		out = append(out, Suggestion{Text: text, Source: "canned"})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
