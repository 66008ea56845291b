// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// ExportFormat is the encoding of an exported card.
type ExportFormat string

const (
	FormatPNG  ExportFormat = "png"
	FormatJPEG ExportFormat = "jpeg"
	FormatWebP ExportFormat = "webp"
	FormatPDF  ExportFormat = "pdf"
)

// Extension returns the file extension for the format, without the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	default:
		return string(f)
	}
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Valid reports whether the format is one the exporter can produce.
func (f ExportFormat) Valid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatWebP, FormatPDF:
		return true
	}
	return false
}

// ExportArtifact is an exported card held in memory. Artifacts are built
// per request and never cached.
type ExportArtifact struct {
	Filename    string       `json:"filename"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"contentType"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Data        []byte       `json:"-"`
	Degraded    bool         `json:"degraded"` // produced by the fallback rasterizer
	CreatedAt   time.Time    `json:"createdAt"`
}
