// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator turns a CardState into a rendered greeting card. It owns
// the state reducer, the generation step, the preview wrapper used by the
// editor pane, and the per-tab sessions that debounce regeneration and push
// previews to subscribers.
package generator

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/models"
)

// ErrIdle is returned by Generate when the state lacks a festival or an
// image. Callers keep showing the idle preview; it is not a failure.
var ErrIdle = errors.New("generator: nothing to generate yet")

// MaxMessageLength bounds the message accepted by the reducer.
const MaxMessageLength = 500

// MaxSenderLength bounds the sender name accepted by the reducer.
const MaxSenderLength = 80

// Generator renders card states against the festival table.
type Generator struct {
	festivals *festival.Store
	policy    *bluemonday.Policy
}

// New creates a generator backed by the given festival store.
func New(festivals *festival.Store) *Generator {
	return &Generator{
		festivals: festivals,
		policy:    bluemonday.StrictPolicy(),
	}
}

// Festivals returns the underlying festival store.
func (g *Generator) Festivals() *festival.Store {
	return g.festivals
}

// Initial returns the state of a fresh editor tab.
func Initial() models.CardState {
	return models.CardState{TemplateID: cardtmpl.Default}
}

// Generate renders the card for state and returns a copy with GeneratedHTML
// filled in. It returns ErrIdle when there is no festival or image yet.
func (g *Generator) Generate(state models.CardState) (models.CardState, error) {
	if state.FestivalID == "" {
		return state, ErrIdle
	}
	f, ok := g.festivals.Find(state.FestivalID)
	if !ok {
		return state, fmt.Errorf("generate %q: %w", state.FestivalID, festival.ErrNotFound)
	}

	image := state.CustomImage
	if image == "" {
		if len(f.Images) == 0 {
			return state, ErrIdle
		}
		var err error
		image, err = g.festivals.Image(f.ID, state.ImageIndex)
		if err != nil {
			return state, fmt.Errorf("generate: %w", err)
		}
	}

	templateID := state.TemplateID
	if templateID == "" {
		templateID = cardtmpl.Default
	}
	tmpl, ok := cardtmpl.Lookup(templateID)
	if !ok {
		return state, fmt.Errorf("generate %q: %w", templateID, cardtmpl.ErrUnknownTemplate)
	}

	message := state.Message
	if strings.TrimSpace(message) == "" {
		message = f.DefaultMessage
	}

	state.TemplateID = templateID
	state.GeneratedHTML = tmpl.Render(f.Name, image, message, state.SenderName)
	return state, nil
}

// Sanitize cleans the user-entered text of a state received from outside
// the reducer, such as an API request.
func (g *Generator) Sanitize(state models.CardState) models.CardState {
	state.Message = g.cleanText(state.Message, MaxMessageLength)
	state.SenderName = g.cleanText(state.SenderName, MaxSenderLength)
	return state
}

// cleanText strips markup from user text and bounds its length. The result
// is plain text; escaping happens when a template renders it.
func (g *Generator) cleanText(s string, limit int) string {
	s = html.UnescapeString(g.policy.Sanitize(s))
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return s
}

// PreviewDocument wraps a generated card so it fits a preview pane of
// paneWidth pixels. cardWidth is the template's natural width. The card is
// scaled down, never up.
func PreviewDocument(cardHTML string, cardWidth, paneWidth int) string {
	scale := 1.0
	if cardWidth > 0 && paneWidth > 0 && paneWidth < cardWidth {
		scale = float64(paneWidth) / float64(cardWidth)
	}
	style := fmt.Sprintf(
		`<style data-preview>html,body{margin:0;padding:0;overflow:hidden;background:transparent}`+
			`#card{transform:scale(%.4f);transform-origin:top left}</style>`, scale)

	if i := strings.Index(strings.ToLower(cardHTML), "</head>"); i >= 0 {
		return cardHTML[:i] + style + cardHTML[i:]
	}
	return style + cardHTML
}
