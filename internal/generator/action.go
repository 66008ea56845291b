// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"fmt"
	"strconv"

	"tyohaarify/internal/models"
)

// Action is one user edit in the card editor.
type Action interface {
	apply(g *Generator, s models.CardState) models.CardState
}

// SelectFestival switches the festival. The image index resets to 0 and the
// message is seeded with the festival's default when it is empty or still
// holds the previous festival's default.
type SelectFestival struct{ ID string }

// SelectTemplate switches the card template.
type SelectTemplate struct{ ID string }

// SelectImage picks one of the festival's images and drops any upload.
type SelectImage struct{ Index int }

// UploadImage sets a custom image. DataURL must already be normalised;
// an empty value clears the upload.
type UploadImage struct{ DataURL string }

// SetMessage replaces the greeting message.
type SetMessage struct{ Text string }

// SetSender replaces the sender name.
type SetSender struct{ Name string }

// Reset returns the editor to its initial state.
type Reset struct{}

func (a SelectFestival) apply(g *Generator, s models.CardState) models.CardState {
	if a.ID == s.FestivalID {
		return s
	}
	var prevDefault string
	if prev, ok := g.festivals.Find(s.FestivalID); ok {
		prevDefault = prev.DefaultMessage
	}

	s.FestivalID = a.ID
	s.ImageIndex = 0
	if next, ok := g.festivals.Find(a.ID); ok && (s.Message == "" || s.Message == prevDefault) {
		s.Message = next.DefaultMessage
	}
	return s
}

func (a SelectTemplate) apply(_ *Generator, s models.CardState) models.CardState {
	s.TemplateID = a.ID
	return s
}

func (a SelectImage) apply(_ *Generator, s models.CardState) models.CardState {
	s.ImageIndex = a.Index
	s.CustomImage = ""
	return s
}

func (a UploadImage) apply(_ *Generator, s models.CardState) models.CardState {
	s.CustomImage = a.DataURL
	return s
}

func (a SetMessage) apply(g *Generator, s models.CardState) models.CardState {
	s.Message = g.cleanText(a.Text, MaxMessageLength)
	return s
}

func (a SetSender) apply(g *Generator, s models.CardState) models.CardState {
	s.SenderName = g.cleanText(a.Name, MaxSenderLength)
	return s
}

func (Reset) apply(_ *Generator, _ models.CardState) models.CardState {
	return Initial()
}

// Reduce applies action to state and returns the next state. The generated
// HTML survives only when the inputs did not change.
func (g *Generator) Reduce(state models.CardState, action Action) models.CardState {
	next := action.apply(g, state)
	if next.Inputs() == state.Inputs() {
		next.GeneratedHTML = state.GeneratedHTML
	} else {
		next.GeneratedHTML = ""
	}
	return next
}

// ParseAction builds an action from its wire form, as posted by the editor
// page: a kind name and a single string value.
func ParseAction(kind, value string) (Action, error) {
	switch kind {
	case "festival":
		return SelectFestival{ID: value}, nil
	case "template":
		return SelectTemplate{ID: value}, nil
	case "image":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid image index %q", value)
		}
		return SelectImage{Index: n}, nil
	case "upload":
		return UploadImage{DataURL: value}, nil
	case "message":
		return SetMessage{Text: value}, nil
	case "sender":
		return SetSender{Name: value}, nil
	case "reset":
		return Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", kind)
	}
}
