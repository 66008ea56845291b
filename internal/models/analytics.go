// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an analytics event sent by the card UI.
type EventType string

const (
	EventCardGenerated EventType = "card_generated"
	EventCardExported  EventType = "card_exported"
	EventCardShared    EventType = "card_shared"
	EventTemplateView  EventType = "template_viewed"
)

// ValidEventType reports whether t is a known analytics event.
func ValidEventType(t EventType) bool {
	switch t {
	case EventCardGenerated, EventCardExported, EventCardShared, EventTemplateView:
		return true
	}
	return false
}

// AnalyticsEvent is a single recorded UI event.
type AnalyticsEvent struct {
	ID         uuid.UUID `json:"id"`
	Event      EventType `json:"event"`
	FestivalID string    `json:"festivalId,omitempty"`
	TemplateID string    `json:"templateId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FestivalStats aggregates analytics events for one festival.
type FestivalStats struct {
	FestivalID string `json:"festivalId"`
	Generated  int    `json:"generated"`
	Exported   int    `json:"exported"`
	Shared     int    `json:"shared"`
}
