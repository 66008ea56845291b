// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SharedCard records an exported artifact uploaded for link sharing. Only
// the rendered file is stored, never the card HTML.
type SharedCard struct {
	ID             uuid.UUID  `json:"id"`
	Token          string     `json:"token"`
	FestivalID     string     `json:"festivalId"`
	S3Key          string     `json:"s3Key"`
	ContentType    string     `json:"contentType"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	AccessCount    int        `json:"accessCount"`
}

// Expired reports whether the share link is past its expiry at now.
func (s *SharedCard) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
