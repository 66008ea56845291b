// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tyohaarify/internal/imaging"
)

// FestivalImage serves generated festival artwork such as
// /images/festivals/diwali-2.png. ?size= picks a variant (thumb, md, full).
func (p *Pages) FestivalImage(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if path.Ext(file) != ".png" {
		http.NotFound(w, r)
		return
	}
	stem := strings.TrimSuffix(file, ".png")
	dash := strings.LastIndex(stem, "-")
	if dash <= 0 {
		http.NotFound(w, r)
		return
	}
	n, err := strconv.Atoi(stem[dash+1:])
	if err != nil || n < 1 {
		http.NotFound(w, r)
		return
	}
	f, ok := p.gen.Festivals().Find(stem[:dash])
	if !ok || !slices.Contains(f.Images, "/images/festivals/"+file) {
		http.NotFound(w, r)
		return
	}

	variant := imaging.FindVariant(r.URL.Query().Get("size"))
	data, err := imaging.EncodePNG(imaging.Artwork(f.Colors, n, variant.Width))
	if err != nil {
		slog.Error("encode festival artwork failed", "file", file, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
