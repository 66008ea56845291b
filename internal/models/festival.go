// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

// Palette holds the three brand colours of a festival, as CSS hex strings.
type Palette struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Accent    string `json:"accent" yaml:"accent"`
}

// Festival is a read-only entry of the festival table loaded at startup.
type Festival struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Emoji          string   `json:"emoji" yaml:"emoji"`
	Description    string   `json:"description" yaml:"description"`
	About          string   `json:"about,omitempty" yaml:"about"` // Markdown
	Region         string   `json:"region" yaml:"region"`
	DefaultMessage string   `json:"defaultMessage" yaml:"default_message"`
	Colors         Palette  `json:"colors" yaml:"colors"`
	Images         []string `json:"images" yaml:"images"`
}

// HasImage reports whether index addresses one of the festival images.
func (f *Festival) HasImage(index int) bool {
	return index >= 0 && index < len(f.Images)
}

// InRegion reports whether the festival belongs to region (case-insensitive).
func (f *Festival) InRegion(region string) bool {
	return strings.EqualFold(strings.TrimSpace(region), f.Region)
}

// FestivalSummary is the short festival description embedded in API responses.
type FestivalSummary struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

// Summary returns the short public description of the festival.
func (f *Festival) Summary() FestivalSummary {
	return FestivalSummary{Name: f.Name, Emoji: f.Emoji, Description: f.Description}
}
