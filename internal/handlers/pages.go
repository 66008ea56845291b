// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tyohaarify/internal/cache"
	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/export"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/imaging"
	"tyohaarify/internal/markdown"
	"tyohaarify/internal/models"
	"tyohaarify/internal/render"
	"tyohaarify/internal/session"
)

const (
	// previewPaneWidth is the width the editor preview iframe is laid out at.
	previewPaneWidth = 600

	// sseHeartbeat keeps idle event streams open through proxies.
	sseHeartbeat = 25 * time.Second
)

// Pages groups handlers for the public card pages and the live editor.
// It checks the Valkey page cache before rendering standalone cards.
type Pages struct {
	renderer  *render.Renderer
	gen       *generator.Generator
	hub       *generator.Hub
	sessions  *session.Store
	pageCache *cache.PageCache
	events    EventRecorder
}

// NewPages creates the page handler group. sessions, pageCache and events
// may be nil; editor state then lives only in memory for the cookie's
// lifetime and cards are rendered on every request.
func NewPages(renderer *render.Renderer, gen *generator.Generator, hub *generator.Hub, sessions *session.Store, pageCache *cache.PageCache, events EventRecorder) *Pages {
	return &Pages{
		renderer:  renderer,
		gen:       gen,
		hub:       hub,
		sessions:  sessions,
		pageCache: pageCache,
		events:    events,
	}
}

// Gallery lists festivals, optionally filtered by ?region=.
func (p *Pages) Gallery(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	store := p.gen.Festivals()

	p.renderer.Page(w, r, "gallery", &render.PageData{
		Title:   "Festivals",
		Section: "gallery",
		Data: map[string]any{
			"Festivals": store.Search(festival.Query{Region: region}),
			"Regions":   store.Regions(),
			"Region":    region,
		},
	})
}

// Festival renders one festival with its pictures and designs.
func (p *Pages) Festival(w http.ResponseWriter, r *http.Request) {
	f, ok := p.gen.Festivals().Find(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	p.renderer.Page(w, r, "festival", &render.PageData{
		Title:       f.Name,
		Description: markdown.Excerpt(f.About, 160),
		Section:     "gallery",
		Data: map[string]any{
			"Festival":  f,
			"Templates": cardtmpl.All(),
		},
	})
}

// editor returns the live session of the requesting tab, creating it (and
// its cookie) on first visit. A stored snapshot seeds a new live session.
func (p *Pages) editor(w http.ResponseWriter, r *http.Request) (*generator.Session, error) {
	seed := generator.Initial()
	var id string
	if p.sessions != nil {
		sid, data, err := p.sessions.Ensure(r.Context(), w, r, seed)
		if err != nil {
			return nil, err
		}
		id, seed = sid, data.Card
	} else {
		id = session.ID(r)
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	if s, ok := p.hub.Lookup(id); ok {
		return s, nil
	}
	return p.hub.Get(id, seed), nil
}

func (p *Pages) save(r *http.Request, s *generator.Session) {
	if p.sessions == nil {
		return
	}
	if err := p.sessions.SaveCard(r.Context(), s.ID(), s.State()); err != nil {
		slog.Warn("session save failed", "session", s.ID(), "error", err)
	}
}

// previewDocument scales generated card HTML into the editor pane.
func previewDocument(state models.CardState, cardHTML string) string {
	if cardHTML == "" {
		return ""
	}
	width := previewPaneWidth
	if tmpl, ok := cardtmpl.Lookup(state.TemplateID); ok {
		width, _ = tmpl.Size()
	}
	return generator.PreviewDocument(cardHTML, width, previewPaneWidth)
}

// Create renders the editor. ?festival= and ?image= preselect a card.
func (p *Pages) Create(w http.ResponseWriter, r *http.Request) {
	s, err := p.editor(w, r)
	if err != nil {
		slog.Error("editor session failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	changed := false
	if id := q.Get("festival"); id != "" && id != s.State().FestivalID {
		s.Apply(generator.SelectFestival{ID: id})
		changed = true
	}
	if v := q.Get("image"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.Apply(generator.SelectImage{Index: n})
			changed = true
		}
	}
	if changed || s.Preview() == "" {
		s.Flush()
	}
	if changed {
		p.save(r, s)
	}

	state := s.State()
	var current *models.Festival
	if f, ok := p.gen.Festivals().Find(state.FestivalID); ok {
		current = f
	}

	p.renderer.Page(w, r, "create", &render.PageData{
		Title:   "Create a card",
		Section: "create",
		Data: map[string]any{
			"SessionID":  s.ID(),
			"State":      state,
			"Festival":   current,
			"Festivals":  p.gen.Festivals().All(),
			"Templates":  cardtmpl.All(),
			"Preview":    previewDocument(state, s.Preview()),
			"Formats":    []models.ExportFormat{models.FormatPNG, models.FormatJPEG, models.FormatWebP, models.FormatPDF},
			"Presets":    export.Presets,
			"Platforms":  export.Platforms,
			"MaxMessage": generator.MaxMessageLength,
			"MaxSender":  generator.MaxSenderLength,
		},
	})
}

// editorState is the client view of a CardState. Uploaded images are
// reported as a flag instead of echoing the data URL back.
type editorState struct {
	FestivalID  string   `json:"festivalId"`
	TemplateID  string   `json:"templateId"`
	ImageIndex  int      `json:"imageIndex"`
	CustomImage bool     `json:"customImage"`
	Message     string   `json:"message"`
	SenderName  string   `json:"senderName"`
	Images      []string `json:"images"`
}

func (p *Pages) view(state models.CardState) editorState {
	v := editorState{
		FestivalID:  state.FestivalID,
		TemplateID:  state.TemplateID,
		ImageIndex:  state.ImageIndex,
		CustomImage: state.HasCustomImage(),
		Message:     state.Message,
		SenderName:  state.SenderName,
		Images:      []string{},
	}
	if f, ok := p.gen.Festivals().Find(state.FestivalID); ok {
		v.Images = f.Images
	}
	return v
}

// UpdateState applies one editor action posted as form fields action and
// value. With flush=1 the preview is regenerated before responding;
// otherwise it arrives on the event stream after the debounce.
func (p *Pages) UpdateState(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	kind, value := r.PostForm.Get("action"), r.PostForm.Get("value")
	if kind == "upload" {
		normalized, err := imaging.NormalizeUpload(value, imaging.DefaultMaxWidth)
		if err != nil {
			writeError(w, http.StatusBadRequest, uploadError(err))
			return
		}
		value = normalized
	}
	action, err := generator.ParseAction(kind, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := p.editor(w, r)
	if err != nil {
		slog.Error("editor session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	state := s.Apply(action)
	p.save(r, s)

	resp := map[string]any{"state": p.view(state)}
	if r.PostForm.Get("flush") == "1" {
		ev := s.Flush()
		resp["state"] = p.view(s.State())
		resp["preview"] = previewDocument(s.State(), ev.HTML)
		if ev.Notice != "" {
			resp["notice"] = ev.Notice
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func uploadError(err error) string {
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return fmt.Sprintf("image is larger than %d MB", imaging.MaxUploadBytes>>20)
	case errors.Is(err, imaging.ErrInvalidDataURL):
		return "upload must be an image"
	}
	return "image could not be read"
}

// Events streams preview updates of the tab's session as server-sent
// events until the client disconnects.
func (p *Pages) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	s, err := p.editor(w, r)
	if err != nil {
		slog.Error("editor session failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			state := s.State()
			payload, err := json.Marshal(map[string]any{
				"preview": previewDocument(state, ev.HTML),
				"notice":  ev.Notice,
				"state":   p.view(state),
			})
			if err != nil {
				slog.Warn("preview event encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: preview\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// Card serves a standalone rendered card, cached in Valkey per
// festival, template and image.
func (p *Pages) Card(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	festivalID := chi.URLParam(r, "festival")
	templateID := chi.URLParam(r, "template")
	index, err := strconv.Atoi(chi.URLParam(r, "image"))
	if err != nil || index < 0 {
		http.Error(w, "invalid image index", http.StatusBadRequest)
		return
	}

	render := func() ([]byte, error) {
		state, err := p.gen.Generate(models.CardState{FestivalID: festivalID, TemplateID: templateID, ImageIndex: index})
		if err != nil {
			return nil, err
		}
		return []byte(state.GeneratedHTML), nil
	}

	var page []byte
	if p.pageCache != nil {
		page, err = p.pageCache.GetOrRender(ctx, cache.CardKey(festivalID, templateID, index), render)
	} else {
		page, err = render()
	}
	if err != nil {
		switch {
		case errors.Is(err, festival.ErrNotFound), errors.Is(err, festival.ErrImageOutOfRange),
			errors.Is(err, cardtmpl.ErrUnknownTemplate), errors.Is(err, generator.ErrIdle):
			http.NotFound(w, r)
		default:
			slog.Error("render card failed", "festival", festivalID, "template", templateID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}
	recordEvent(ctx, p.events, models.EventTemplateView, festivalID, templateID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// Offline renders the page shown when the edge worker cannot reach us.
func (p *Pages) Offline(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "offline", &render.PageData{Title: "Offline", Section: "offline"})
}
