// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"context"
	"image"

	"tyohaarify/internal/models"
)

// Card is a generated card ready for rasterization. HTML, Width and Height
// are what a browser needs; the remaining fields let the compositor paint
// the card without a layout engine.
type Card struct {
	HTML     string
	Width    int
	Height   int
	Festival models.Festival
	Template string
	Image    string // festival image path or data URL
	Message  string
	Sender   string
}

// Rasterizer turns a card into a bitmap at the card's natural size.
type Rasterizer interface {
	Rasterize(ctx context.Context, card Card) (image.Image, error)
}

// WebPEncoder encodes a bitmap as WebP.
type WebPEncoder interface {
	EncodeWebP(ctx context.Context, img image.Image) ([]byte, error)
}
