// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// CardState is the per-tab record of the user's current selections. It is
// treated as an immutable snapshot: every change produces a new value.
// GeneratedHTML is derived from the other fields and is empty until the
// state has been generated.
type CardState struct {
	FestivalID    string `json:"festivalId"`
	TemplateID    string `json:"templateId"`
	ImageIndex    int    `json:"imageIndex"`
	CustomImage   string `json:"customImage,omitempty"` // data URL of an uploaded image
	Message       string `json:"message"`
	SenderName    string `json:"senderName"`
	GeneratedHTML string `json:"generatedHtml,omitempty"`
}

// HasCustomImage reports whether the user uploaded their own picture.
func (s CardState) HasCustomImage() bool {
	return s.CustomImage != ""
}

// Inputs returns the state with the derived HTML cleared, which is the part
// of the state that determines the generated card.
func (s CardState) Inputs() CardState {
	s.GeneratedHTML = ""
	return s
}
