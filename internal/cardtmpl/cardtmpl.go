// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cardtmpl provides the greeting card templates. Each template is a
// self-contained HTML document (inline CSS, one image reference) compiled
// once at init from the embedded templates/ directory. Rendering is pure:
// the same four inputs always produce byte-identical output.
package cardtmpl

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrUnknownTemplate is returned when a template id is not registered.
var ErrUnknownTemplate = errors.New("unknown card template")

// CardTemplate renders one visual variant of a greeting card.
type CardTemplate interface {
	// ID is the stable identifier used by the API and the UI.
	ID() string
	// Name is the human-readable label shown in the gallery.
	Name() string
	// Size returns the natural card dimensions in CSS pixels.
	Size() (width, height int)
	// Render returns a complete HTML document starting with <!DOCTYPE html>.
	Render(festivalName, imagePath, message, senderName string) string
}

// data is the value every card template is executed with.
type data struct {
	Festival string
	Image    any // template.URL when trusted, string otherwise
	Message  string
	Sender   string
}

// htmlTemplate is a CardTemplate backed by a compiled html/template.
type htmlTemplate struct {
	id     string
	name   string
	width  int
	height int
	tmpl   *template.Template
}

func (t *htmlTemplate) ID() string       { return t.id }
func (t *htmlTemplate) Name() string     { return t.name }
func (t *htmlTemplate) Size() (int, int) { return t.width, t.height }

// Render executes the template. Text fields are escaped for their HTML
// context; the image path is passed through as a URL when it has a scheme
// or form the card can load (see imageURL).
func (t *htmlTemplate) Render(festivalName, imagePath, message, senderName string) string {
	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, data{
		Festival: festivalName,
		Image:    imageURL(imagePath),
		Message:  message,
		Sender:   strings.TrimSpace(senderName),
	})
	if err != nil {
		// Execution over plain strings cannot fail for a template that
		// parsed at init; keep the contract anyway.
		slog.Error("card template execute failed", "template", t.id, "error", err)
		return fallbackDocument(festivalName)
	}
	return buf.String()
}

// imageURL marks safe image references as trusted URLs so html/template does
// not replace them. Accepted: site-relative paths, http(s) URLs and base64
// image data URLs. Anything else stays a plain string and goes through the
// template's URL filter.
func imageURL(path string) any {
	p := strings.TrimSpace(path)
	switch {
	case strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//"):
		return template.URL(p)
	case strings.HasPrefix(p, "https://"), strings.HasPrefix(p, "http://"):
		return template.URL(p)
	case strings.HasPrefix(p, "data:image/") && strings.Contains(p, ";base64,"):
		return template.URL(p)
	}
	return p
}

func fallbackDocument(festivalName string) string {
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Greeting</title></head><body><h1>" +
		template.HTMLEscapeString(festivalName) + "</h1></body></html>\n"
}

// registration describes one built-in template.
type registration struct {
	id, name      string
	width, height int
}

// builtins lists the templates in gallery order.
var builtins = []registration{
	{"classic", "Classic", 800, 600},
	{"modern", "Modern", 800, 600},
	{"elegant", "Elegant", 600, 800},
	{"vibrant", "Vibrant", 800, 800},
	{"minimal", "Minimal", 800, 600},
	{"royal", "Royal", 600, 800},
	{"floral", "Floral", 800, 800},
	{"neon", "Neon Glow", 800, 600},
	{"vintage", "Vintage Postcard", 800, 600},
	{"festive", "Festive", 800, 800},
	{"watercolor", "Watercolor", 600, 800},
	{"geometric", "Geometric", 800, 800},
	{"polaroid", "Polaroid", 600, 750},
	{"golden", "Golden", 800, 600},
	{"split", "Split", 900, 600},
}

var (
	registry = map[string]CardTemplate{}
	ordered  []CardTemplate
)

func init() {
	for _, r := range builtins {
		tmpl := template.Must(template.New(r.id+".html").ParseFS(templateFS, "templates/"+r.id+".html"))
		t := &htmlTemplate{id: r.id, name: r.name, width: r.width, height: r.height, tmpl: tmpl}
		registry[r.id] = t
		ordered = append(ordered, t)
	}
}

// Lookup returns the template registered under id.
func Lookup(id string) (CardTemplate, bool) {
	t, ok := registry[id]
	return t, ok
}

// IDs returns every template id in gallery order.
func IDs() []string {
	ids := make([]string, len(ordered))
	for i, t := range ordered {
		ids[i] = t.ID()
	}
	return ids
}

// All returns every template in gallery order.
func All() []CardTemplate {
	out := make([]CardTemplate, len(ordered))
	copy(out, ordered)
	return out
}

// Default is the template used when a request does not name one.
const Default = "classic"
