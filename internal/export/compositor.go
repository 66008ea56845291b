// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"tyohaarify/internal/festival"
	"tyohaarify/internal/imaging"
)

// artworkPath matches the generated festival artwork URLs.
var artworkPath = regexp.MustCompile(`^/images/festivals/([a-z0-9-]+)-(\d+)\.png$`)

// Compositor paints a card with pure Go drawing: a palette gradient, the
// card picture and the text fields. It does not interpret the card HTML.
type Compositor struct {
	festivals *festival.Store
}

// NewCompositor creates a compositor that resolves artwork paths against
// the festival table.
func NewCompositor(festivals *festival.Store) *Compositor {
	return &Compositor{festivals: festivals}
}

// Rasterize paints card at its natural size.
func (c *Compositor) Rasterize(ctx context.Context, card Card) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if card.Width <= 0 || card.Height <= 0 {
		return nil, fmt.Errorf("compositor: invalid card size %dx%d", card.Width, card.Height)
	}

	w, h := card.Width, card.Height
	primary := imaging.ParseHexColor(card.Festival.Colors.Primary)
	secondary := imaging.ParseHexColor(card.Festival.Colors.Secondary)
	accent := imaging.ParseHexColor(card.Festival.Colors.Accent)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / float64(h)
		row := mix(primary, secondary, t)
		for x := 0; x < w; x++ {
			dst.SetRGBA(x, y, row)
		}
	}

	margin := w / 16
	frame := image.Rect(margin, margin, w-margin, margin+h*11/20)
	draw.Draw(dst, frame.Inset(-4), image.NewUniform(accent), image.Point{}, draw.Src)
	if pic, err := c.picture(card); err != nil {
		slog.Warn("compositor could not load card image", "festival", card.Festival.ID, "error", err)
		draw.Draw(dst, frame, image.NewUniform(secondary), image.Point{}, draw.Src)
	} else {
		draw.Draw(dst, frame, imaging.Cover(pic, frame.Dx(), frame.Dy()), image.Point{}, draw.Src)
	}

	white := color.RGBA{255, 255, 255, 255}
	y := frame.Max.Y + margin/2
	y = drawText(dst, card.Festival.Name, textScale(w, 4), y, w-2*margin, accent)
	y = drawText(dst, card.Message, textScale(w, 2), y+margin/4, w-2*margin, white)
	if s := strings.TrimSpace(card.Sender); s != "" {
		drawText(dst, "From "+s, textScale(w, 2), y+margin/4, w-2*margin, white)
	}
	return dst, nil
}

// picture loads the card image: generated artwork for festival paths and
// decoded bytes for data URLs. Remote URLs are not fetched.
func (c *Compositor) picture(card Card) (image.Image, error) {
	if strings.HasPrefix(card.Image, "data:") {
		img, _, err := imaging.DecodeDataURL(card.Image)
		return img, err
	}
	m := artworkPath.FindStringSubmatch(card.Image)
	if m == nil {
		return nil, fmt.Errorf("unsupported image source %q", card.Image)
	}
	f, ok := c.festivals.Find(m[1])
	if !ok {
		return nil, fmt.Errorf("artwork for %q: %w", m[1], festival.ErrNotFound)
	}
	n, _ := strconv.Atoi(m[2])
	return imaging.Artwork(f.Colors, n, card.Width), nil
}

// textScale picks the glyph magnification for a card of width w. The base
// font is 7x13 pixels, far too small for an 800px card at 1x.
func textScale(w, base int) int {
	s := base * w / 800
	if s < 1 {
		s = 1
	}
	return s
}

// drawText writes s centred and word-wrapped inside maxWidth, starting at
// top y, and returns the y just below the last line.
func drawText(dst *image.RGBA, s string, scale, y, maxWidth int, c color.Color) int {
	face := basicfont.Face7x13
	glyphW, lineH := face.Advance*scale, face.Height*scale
	perLine := maxWidth / glyphW
	if perLine < 1 {
		return y
	}

	for _, line := range wrap(s, perLine) {
		if y+lineH > dst.Bounds().Max.Y {
			break
		}
		small := image.NewRGBA(image.Rect(0, 0, len(line)*face.Advance, face.Height))
		d := font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(line)

		lw := small.Bounds().Dx() * scale
		x := (dst.Bounds().Dx() - lw) / 2
		target := image.Rect(x, y, x+lw, y+lineH)
		draw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), draw.Over, nil)
		y += lineH + scale*2
	}
	return y
}

// wrap splits s into lines of at most n characters, breaking on spaces and
// hard-splitting words longer than a line. Non-ASCII runes are dropped
// since the bitmap font only covers ASCII.
func wrap(s string, n int) []string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			if r == '\n' || r == '\t' {
				return ' '
			}
			return -1
		}
		return r
	}, s)

	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		for len(word) > n {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= n:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	m := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{m(a.R, b.R), m(a.G, b.G), m(a.B, b.B), 255}
}
