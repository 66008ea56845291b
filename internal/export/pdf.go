// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Paper is a PDF page size.
type Paper string

const (
	PaperA4     Paper = "a4"
	PaperLetter Paper = "letter"
	PaperA5     Paper = "a5"
)

// pdfMargin is the blank border around the card, in points.
const pdfMargin = 36.0

// ParsePaper maps a name to a Paper, defaulting to A4.
func ParsePaper(s string) (Paper, error) {
	switch p := Paper(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PaperA4, nil
	case PaperA4, PaperLetter, PaperA5:
		return p, nil
	default:
		return "", fmt.Errorf("unknown paper size %q", s)
	}
}

func (p Paper) fpdfSize() string {
	switch p {
	case PaperLetter:
		return "Letter"
	case PaperA5:
		return "A5"
	default:
		return "A4"
	}
}

// SinglePagePDF places a JPEG of w x h pixels on one page of the given
// paper size, fitted inside the margins and centred. Landscape images get a
// landscape page.
func SinglePagePDF(jpg []byte, w, h int, paper Paper) ([]byte, error) {
	orientation := "P"
	if w > h {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "pt", paper.fpdfSize(), "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("tyohaarify", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("card", opts, bytes.NewReader(jpg))

	pageW, pageH := pdf.GetPageSize()
	boxW, boxH := pageW-2*pdfMargin, pageH-2*pdfMargin
	scale := min(boxW/float64(w), boxH/float64(h))
	drawW, drawH := float64(w)*scale, float64(h)*scale
	x, y := (pageW-drawW)/2, (pageH-drawH)/2
	pdf.ImageOptions("card", x, y, drawW, drawH, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
