// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public pages.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"tyohaarify/internal/markdown"
)

//go:embed templates/pages/*.html
var pagesFS embed.FS

// PageData is the root value every page template executes against.
// Section selects the highlighted nav link: "gallery" or "create".
type PageData struct {
	Title       string
	Description string
	Section     string
	Data        map[string]any
}

// Renderer holds one parsed template set per page, each layered on
// base.html.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// New creates a Renderer by parsing all page templates from the embedded
// filesystem. Each page template is paired with the base layout.
func New() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			// color passes festival palette entries into style attributes.
			// Anything that is not a hex colour becomes "inherit".
			"color": func(s string) template.CSS {
				if hexColor.MatchString(s) {
					return template.CSS(s)
				}
				return "inherit"
			},
			"markdown": func(src string) template.HTML {
				out, err := markdown.ToHTML(src)
				if err != nil {
					slog.Warn("markdown render failed", "error", err)
					return template.HTML(template.HTMLEscapeString(src))
				}
				return out
			},
		},
	}

	entries, err := pagesFS.ReadDir("templates/pages")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" {
			continue
		}
		tmpl, err := template.New("base.html").Funcs(r.funcMap).ParseFS(
			pagesFS, "templates/pages/base.html", "templates/pages/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}

	return r, nil
}

// Has reports whether a page template exists.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a full page or an HTMX partial, depending on the request
// headers. For HTMX requests, only the "content" block is sent.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus is Page with an explicit status code. The template is
// executed into a buffer first so a failure still yields a clean 500.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	var buf bytes.Buffer
	execName := "base.html"
	if isHTMX(r) {
		execName = "content"
	}
	if err := rn.Execute(&buf, name, execName, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Render returns the full page as bytes, for callers that cache the output.
func (rn *Renderer) Render(name string, data *PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := rn.Execute(&buf, name, "base.html", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Execute runs one named template of a page.
func (rn *Renderer) Execute(w io.Writer, page, block string, data *PageData) error {
	tmpl, ok := rn.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	if data == nil {
		data = &PageData{}
	}
	return tmpl.ExecuteTemplate(w, block, data)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
