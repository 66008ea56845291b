// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/export"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/imaging"
	"tyohaarify/internal/models"
	"tyohaarify/internal/store"
)

// ShareOpener resolves share tokens, counting each access.
type ShareOpener interface {
	Open(ctx context.Context, token string) (*models.SharedCard, error)
}

// ObjectURLs turns stored object keys into public URLs.
type ObjectURLs interface {
	FileURL(key string) string
}

// Exports groups the export, bundle and share endpoints.
type Exports struct {
	gen      *generator.Generator
	exporter *export.Exporter
	sharer   *export.Sharer
	shares   ShareOpener
	objects  ObjectURLs
	events   EventRecorder
	now      func() time.Time
}

// NewExports creates the export handler group. shares and objects may be
// nil when Postgres or object storage are not configured; /s/{token} then
// answers 404.
func NewExports(gen *generator.Generator, exporter *export.Exporter, sharer *export.Sharer, shares ShareOpener, objects ObjectURLs, events EventRecorder) *Exports {
	return &Exports{
		gen:      gen,
		exporter: exporter,
		sharer:   sharer,
		shares:   shares,
		objects:  objects,
		events:   events,
		now:      time.Now,
	}
}

// exportRequest is a card state plus output options.
type exportRequest struct {
	models.CardState
	Format   models.ExportFormat `json:"format"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	Preset   string              `json:"preset"`
	Paper    string              `json:"paper"`
	Purpose  string              `json:"purpose"`
	Platform string              `json:"platform"`
}

// cardInputs sanitises the posted state. A custom image must be an
// uploaded data URL; it is re-encoded like an editor upload.
func (e *Exports) cardInputs(state models.CardState) (models.CardState, error) {
	state = e.gen.Sanitize(state.Inputs())
	if !state.HasCustomImage() {
		return state, nil
	}
	normalized, err := imaging.NormalizeUpload(state.CustomImage, imaging.DefaultMaxWidth)
	if err != nil {
		return state, errors.New(uploadError(err))
	}
	state.CustomImage = normalized
	return state, nil
}

// build validates the request and turns it into an export.Request.
func (e *Exports) build(req exportRequest) (export.Request, error) {
	state, err := e.cardInputs(req.CardState)
	if err != nil {
		return export.Request{}, err
	}
	out := export.Request{
		State:   state,
		Format:  req.Format,
		Width:   req.Width,
		Height:  req.Height,
		Purpose: req.Purpose,
	}
	if req.Preset != "" {
		p, ok := export.FindPreset(req.Preset)
		if !ok {
			return out, fmt.Errorf("unknown preset %q", req.Preset)
		}
		out.Width, out.Height = p.Width, p.Height
		if out.Purpose == "" {
			out.Purpose = p.Name
		}
	}
	paper, err := export.ParsePaper(req.Paper)
	if err != nil {
		return out, err
	}
	out.Paper = paper
	return out, nil
}

// exportStatus maps an export error to an HTTP status.
func exportStatus(err error) int {
	switch {
	case errors.Is(err, generator.ErrIdle),
		errors.Is(err, export.ErrUntrustedImage),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrInvalidSize),
		errors.Is(err, export.ErrUnknownPlatform):
		return http.StatusBadRequest
	case errors.Is(err, festival.ErrNotFound),
		errors.Is(err, festival.ErrImageOutOfRange),
		errors.Is(err, cardtmpl.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeExportError(w http.ResponseWriter, err error, festivalID string) {
	status := exportStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("export failed", "festival", festivalID, "error", err)
		writeError(w, status, "export failed")
		return
	}
	if errors.Is(err, generator.ErrIdle) {
		writeError(w, status, "choose a festival and a picture first")
		return
	}
	writeError(w, status, err.Error())
}

// writeAttachment sends bytes as a download. Nothing is written before
// the artifact is complete.
func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Export renders one artifact and returns it as a download.
func (e *Exports) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := e.build(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	artifact, err := e.exporter.Export(r.Context(), exp)
	if err != nil {
		writeExportError(w, err, req.FestivalID)
		return
	}
	if artifact.Degraded {
		w.Header().Set("X-Export-Degraded", "true")
	}
	recordEvent(r.Context(), e.events, models.EventCardExported, req.FestivalID, req.TemplateID)
	writeAttachment(w, artifact.ContentType, artifact.Filename, artifact.Data)
}

// Bundle renders every social preset and returns a zip archive.
func (e *Exports) Bundle(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := e.cardInputs(req.CardState)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, filename, err := e.exporter.Bundle(r.Context(), state, req.Format)
	if err != nil {
		writeExportError(w, err, req.FestivalID)
		return
	}
	recordEvent(r.Context(), e.events, models.EventCardExported, req.FestivalID, req.TemplateID)
	writeAttachment(w, "application/zip", filename, data)
}

// Share exports the card and publishes it for the requested platform.
func (e *Exports) Share(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := e.build(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if exp.Purpose == "" {
		exp.Purpose = "shared-card"
	}

	artifact, err := e.exporter.Export(r.Context(), exp)
	if err != nil {
		writeExportError(w, err, req.FestivalID)
		return
	}
	res, err := e.sharer.Share(r.Context(), artifact, req.FestivalID, req.Platform)
	if err != nil {
		writeExportError(w, err, req.FestivalID)
		return
	}
	recordEvent(r.Context(), e.events, models.EventCardShared, req.FestivalID, req.TemplateID)
	writeJSON(w, http.StatusOK, res)
}

// SharedCard resolves a share token and redirects to the stored artifact.
// Unknown tokens are 404, expired ones 410.
func (e *Exports) SharedCard(w http.ResponseWriter, r *http.Request) {
	if e.shares == nil || e.objects == nil {
		http.NotFound(w, r)
		return
	}
	token := chi.URLParam(r, "token")
	card, err := e.shares.Open(r.Context(), token)
	if errors.Is(err, store.ErrShareNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("open shared card failed", "token", token, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if card.Expired(e.now()) {
		http.Error(w, "This card link has expired.", http.StatusGone)
		return
	}
	http.Redirect(w, r, e.objects.FileURL(card.S3Key), http.StatusFound)
}
