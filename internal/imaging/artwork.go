// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imaging

import (
	"image"
	"image/color"
	"math"

	"tyohaarify/internal/models"
)

// ArtworkAspect is the height/width ratio of generated festival artwork.
const ArtworkAspect = 0.75

// Artwork paints festival image number n (1-based) at the given width. The
// result depends only on the palette, n and width, so the same URL always
// serves the same bytes.
func Artwork(p models.Palette, n, width int) *image.RGBA {
	if width <= 0 {
		width = DefaultVariants[len(DefaultVariants)-1].Width
	}
	height := int(float64(width) * ArtworkAspect)
	primary := ParseHexColor(p.Primary)
	secondary := ParseHexColor(p.Secondary)
	accent := ParseHexColor(p.Accent)

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Diagonal gradient; the direction rotates with n so each image differs.
	angle := float64(n%4) * math.Pi / 4
	dx, dy := math.Cos(angle), math.Sin(angle)
	span := math.Abs(dx)*float64(width) + math.Abs(dy)*float64(height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := (float64(x)*dx + float64(y)*dy) / span
			if t < 0 {
				t += 1
			}
			img.SetRGBA(x, y, lerp(primary, secondary, t))
		}
	}

	// Glowing discs in the accent colour, laid out on a fixed pattern.
	discs := 3 + n%4
	for i := 0; i < discs; i++ {
		cx := float64(width) * (0.15 + 0.7*frac(float64(i*37+n*11)/17))
		cy := float64(height) * (0.2 + 0.6*frac(float64(i*53+n*7)/13))
		r := float64(width) * (0.04 + 0.05*frac(float64(i*29+n)/7))
		glow(img, cx, cy, r, accent)
	}
	return img
}

func frac(v float64) float64 {
	return v - math.Floor(v)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// glow blends a soft disc of colour c into img.
func glow(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	b := img.Bounds()
	x0, x1 := int(math.Max(0, cx-2*r)), int(math.Min(float64(b.Max.X), cx+2*r))
	y0, y1 := int(math.Max(0, cy-2*r)), int(math.Min(float64(b.Max.Y), cy+2*r))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			a := 1.0
			if d > r {
				a = math.Max(0, 1-(d-r)/r) * 0.6
			}
			if a <= 0 {
				continue
			}
			img.SetRGBA(x, y, lerp(img.RGBAAt(x, y), c, a))
		}
	}
}
