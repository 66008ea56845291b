// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging handles card images: decoding user uploads sent as data
// URLs, normalising them to a bounded JPEG, exact resizing for exports, and
// generating the festival artwork served under /images/festivals/.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register GIF decoder for uploads
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder for uploads
)

const (
	// MaxUploadBytes bounds the decoded size of a user-uploaded image.
	MaxUploadBytes = 8 << 20

	// DefaultMaxWidth is the width uploads are downscaled to.
	DefaultMaxWidth = 1600

	uploadQuality = 85
)

var (
	// ErrInvalidDataURL is returned for strings that are not base64 image data URLs.
	ErrInvalidDataURL = errors.New("imaging: not a base64 image data URL")

	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("imaging: image too large")
)

// Variant describes a single artwork size.
type Variant struct {
	Name  string // e.g., "thumb", "md"
	Width int    // Target width in pixels
}

// DefaultVariants are the artwork sizes the image handler accepts.
var DefaultVariants = []Variant{
	{Name: "thumb", Width: 320},
	{Name: "md", Width: 800},
	{Name: "full", Width: 1200},
}

// FindVariant returns the named variant, or the largest one when name is unknown.
func FindVariant(name string) Variant {
	for _, v := range DefaultVariants {
		if v.Name == name {
			return v
		}
	}
	return DefaultVariants[len(DefaultVariants)-1]
}

// DecodeDataURL decodes a base64 image data URL and returns the image and
// its format name as reported by image.Decode.
func DecodeDataURL(dataURL string) (image.Image, string, error) {
	raw, err := dataURLBytes(dataURL)
	if err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode upload: %w", err)
	}
	return img, format, nil
}

func dataURLBytes(dataURL string) ([]byte, error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURL
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return raw, nil
}

// NormalizeUpload decodes an uploaded image data URL, downscales it to at
// most maxWidth pixels wide, and returns it re-encoded as a JPEG data URL.
// Re-encoding strips metadata and guarantees the card receives a format
// every rasterizer can decode.
func NormalizeUpload(dataURL string, maxWidth int) (string, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	img, _, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	if b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		img = Resize(img, maxWidth, h)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: uploadQuality}); err != nil {
		return "", fmt.Errorf("imaging: encode upload: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Resize scales img to exactly width x height using Catmull-Rom resampling.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Cover scales img to fill width x height, cropping the overflow around the
// centre (CSS object-fit: cover).
func Cover(img image.Image, width, height int) *image.RGBA {
	sb := img.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	// Pick the source rectangle with the destination aspect ratio.
	crop := sb
	if sw*height > sh*width {
		cw := sh * width / height
		x0 := sb.Min.X + (sw-cw)/2
		crop = image.Rect(x0, sb.Min.Y, x0+cw, sb.Max.Y)
	} else {
		ch := sw * height / width
		y0 := sb.Min.Y + (sh-ch)/2
		crop = image.Rect(sb.Min.X, y0, sb.Max.X, y0+ch)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}

// flatten composites img over white, dropping alpha for JPEG output.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img as JPEG bytes, flattening transparency onto white.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseHexColor parses "#rgb" or "#rrggbb". Invalid input yields opaque grey.
func ParseHexColor(s string) color.RGBA {
	grey := color.RGBA{128, 128, 128, 255}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return grey
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return grey
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}
