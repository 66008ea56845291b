// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export turns a card state into a downloadable artifact. Cards are
// rasterized by headless Chromium when available, falling back to a pure Go
// compositor, then scaled to the requested size and encoded as PNG, JPEG,
// WebP or a single-page PDF.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/imaging"
	"tyohaarify/internal/models"
	"tyohaarify/internal/slug"
)

var (
	// ErrUnsupportedFormat is returned for formats other than png, jpeg, webp and pdf.
	ErrUnsupportedFormat = errors.New("export: unsupported format")

	// ErrInvalidSize is returned for output dimensions outside 1..MaxDimension.
	ErrInvalidSize = errors.New("export: invalid output size")

	// ErrUntrustedImage is returned when a custom image is not an inline
	// data URL. The rasterizer must never fetch caller-chosen URLs.
	ErrUntrustedImage = errors.New("export: custom image must be an uploaded data URL")
)

const (
	// MaxDimension bounds either side of an exported image.
	MaxDimension = 4000

	// DefaultPurpose names a plain card download.
	DefaultPurpose = "greeting-card"

	// DefaultTimeout bounds a single export when the caller sets none.
	DefaultTimeout = 30 * time.Second

	jpegQuality = 92
)

// Request describes one export.
type Request struct {
	State   models.CardState
	Format  models.ExportFormat
	Width   int    // 0 keeps the template's natural width
	Height  int    // 0 keeps the template's natural height
	Paper   Paper  // PDF only
	Purpose string // used in the filename, defaults to DefaultPurpose
}

// Exporter renders card states into artifacts.
type Exporter struct {
	gen      *generator.Generator
	primary  Rasterizer
	fallback Rasterizer
	webp     WebPEncoder
	timeout  time.Duration
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBrowser sets the primary rasterizer and WebP encoder.
func WithBrowser(b *Browser) Option {
	return func(e *Exporter) {
		if b != nil {
			e.primary = b
			e.webp = b
		}
	}
}

// WithTimeout bounds each export.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an exporter. Without WithBrowser only the compositor is used
// and WebP exports are unavailable.
func New(gen *generator.Generator, opts ...Option) *Exporter {
	e := &Exporter{
		gen:      gen,
		fallback: NewCompositor(gen.Festivals()),
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders, scales and encodes one artifact. Nothing is cached: every
// call regenerates the card from the state.
func (e *Exporter) Export(ctx context.Context, req Request) (*models.ExportArtifact, error) {
	if req.Format == "" {
		req.Format = models.FormatPNG
	}
	if !req.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if req.Format == models.FormatWebP && e.webp == nil {
		return nil, fmt.Errorf("%w: webp needs a browser", ErrUnsupportedFormat)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	card, err := e.card(req.State)
	if err != nil {
		return nil, err
	}

	width, height := req.Width, req.Height
	switch {
	case width == 0 && height == 0:
		width, height = card.Width, card.Height
	case height == 0 && width > 0:
		height = max(1, width*card.Height/card.Width)
	case width == 0 && height > 0:
		width = max(1, height*card.Width/card.Height)
	}
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, req.Width, req.Height)
	}

	img, degraded, err := e.rasterize(ctx, card)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		img = imaging.Resize(img, width, height)
	}

	data, err := e.encode(ctx, img, req)
	if err != nil {
		return nil, err
	}

	return &models.ExportArtifact{
		Filename:    Filename(card.Festival.Name, req.Purpose, req.Format),
		Format:      req.Format,
		ContentType: req.Format.ContentType(),
		Width:       width,
		Height:      height,
		Data:        data,
		Degraded:    degraded,
		CreatedAt:   e.now(),
	}, nil
}

// card generates the HTML and gathers everything a rasterizer needs.
func (e *Exporter) card(state models.CardState) (Card, error) {
	if state.HasCustomImage() && !strings.HasPrefix(state.CustomImage, "data:image/") {
		return Card{}, ErrUntrustedImage
	}
	generated, err := e.gen.Generate(state)
	if err != nil {
		return Card{}, fmt.Errorf("export: %w", err)
	}
	tmpl, ok := cardtmpl.Lookup(generated.TemplateID)
	if !ok {
		return Card{}, fmt.Errorf("export: %w", cardtmpl.ErrUnknownTemplate)
	}
	// The table may have been reloaded since Generate.
	f, ok := e.gen.Festivals().Find(generated.FestivalID)
	if !ok {
		return Card{}, fmt.Errorf("export: %w", festival.ErrNotFound)
	}

	image := generated.CustomImage
	if image == "" {
		if generated.ImageIndex < 0 || generated.ImageIndex >= len(f.Images) {
			return Card{}, fmt.Errorf("export: %w", festival.ErrImageOutOfRange)
		}
		image = f.Images[generated.ImageIndex]
	}
	message := generated.Message
	if strings.TrimSpace(message) == "" {
		message = f.DefaultMessage
	}

	w, h := tmpl.Size()
	return Card{
		HTML:     generated.GeneratedHTML,
		Width:    w,
		Height:   h,
		Festival: *f,
		Template: tmpl.ID(),
		Image:    image,
		Message:  message,
		Sender:   generated.SenderName,
	}, nil
}

// rasterize tries the primary rasterizer, then the compositor. The second
// return value reports whether the compositor produced the image.
func (e *Exporter) rasterize(ctx context.Context, card Card) (image.Image, bool, error) {
	if e.primary != nil {
		img, err := e.primary.Rasterize(ctx, card)
		if err == nil {
			return img, false, nil
		}
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("export: rasterize: %w", ctx.Err())
		}
		slog.Warn("browser rasterizer failed, using compositor", "festival", card.Festival.ID, "template", card.Template, "error", err)
	}

	img, err := e.fallback.Rasterize(ctx, card)
	if err != nil {
		return nil, false, fmt.Errorf("export: rasterize: %w", err)
	}
	return img, true, nil
}

func (e *Exporter) encode(ctx context.Context, img image.Image, req Request) ([]byte, error) {
	switch req.Format {
	case models.FormatPNG:
		return imaging.EncodePNG(img)
	case models.FormatJPEG:
		return imaging.EncodeJPEG(img, jpegQuality)
	case models.FormatWebP:
		return e.webp.EncodeWebP(ctx, img)
	case models.FormatPDF:
		jpg, err := imaging.EncodeJPEG(img, jpegQuality)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		return SinglePagePDF(jpg, b.Dx(), b.Dy(), req.Paper)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
}

// Filename builds "{FestivalName}-{purpose}.{ext}" with both parts reduced
// to characters safe in file names.
func Filename(festivalName, purpose string, format models.ExportFormat) string {
	p := slug.Make(purpose)
	if p == "" {
		p = DefaultPurpose
	}
	return cardStem(festivalName) + "-" + p + "." + format.Extension()
}

// cardStem is the festival part of download names.
func cardStem(festivalName string) string {
	if name := slug.Title(festivalName); name != "" {
		return name
	}
	return "Card"
}
