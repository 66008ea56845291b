// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tyohaarify/internal/ai"
	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/models"
	"tyohaarify/internal/tools"
)

// maxPlaceholderSide bounds each placeholder dimension.
const maxPlaceholderSide = 4000

// EventRecorder persists analytics events.
type EventRecorder interface {
	Record(ctx context.Context, e *models.AnalyticsEvent) error
}

// API groups the JSON endpoints under /api.
type API struct {
	tools     *tools.Service
	festivals *festival.Store
	suggester *ai.Suggester
	events    EventRecorder
	latency   time.Duration
	version   string
	now       func() time.Time
}

// NewAPI creates the API handler group. suggester and events may be nil:
// suggestions then come from the canned set and analytics are accepted
// without being stored.
func NewAPI(svc *tools.Service, festivals *festival.Store, suggester *ai.Suggester, events EventRecorder, latency time.Duration, version string) *API {
	return &API{
		tools:     svc,
		festivals: festivals,
		suggester: suggester,
		events:    events,
		latency:   latency,
		version:   version,
		now:       time.Now,
	}
}

// record stores an analytics event. Failures are logged and ignored.
func (a *API) record(ctx context.Context, event models.EventType, festivalID, templateID string) bool {
	return recordEvent(ctx, a.events, event, festivalID, templateID)
}

func recordEvent(ctx context.Context, events EventRecorder, event models.EventType, festivalID, templateID string) bool {
	if events == nil {
		return false
	}
	err := events.Record(ctx, &models.AnalyticsEvent{Event: event, FestivalID: festivalID, TemplateID: templateID})
	if err != nil {
		slog.Warn("analytics record failed", "event", event, "festival", festivalID, "error", err)
		return false
	}
	return true
}

type generateCardRequest struct {
	FestivalID string `json:"festivalId"`
	TemplateID string `json:"templateId"`
	ImageIndex *int   `json:"imageIndex"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

// GenerateCard renders a card from a JSON request. festivalId, templateId
// and imageIndex are required.
func (a *API) GenerateCard(w http.ResponseWriter, r *http.Request) {
	if err := simulateLatency(r.Context(), a.latency); err != nil {
		return
	}

	var req generateCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var missing []string
	if strings.TrimSpace(req.FestivalID) == "" {
		missing = append(missing, "festivalId")
	}
	if strings.TrimSpace(req.TemplateID) == "" {
		missing = append(missing, "templateId")
	}
	if req.ImageIndex == nil {
		missing = append(missing, "imageIndex")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	greeting, err := a.tools.CreateGreeting(tools.CreateGreetingArgs{
		FestivalID: req.FestivalID,
		TemplateID: req.TemplateID,
		ImageIndex: req.ImageIndex,
		Message:    req.Message,
		SenderName: req.SenderName,
	})
	if err != nil {
		status := tools.Status(err)
		if status == http.StatusInternalServerError {
			slog.Error("generate card failed", "festival", req.FestivalID, "error", err)
			writeError(w, status, "card generation failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	a.record(r.Context(), models.EventCardGenerated, req.FestivalID, greeting.Template)
	writeJSON(w, http.StatusOK, greeting)
}

// GenerateCardUsage documents the POST endpoint.
func (a *API) GenerateCardUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint": "/api/generate-card",
		"method":   http.MethodPost,
		"example": map[string]any{
			"festivalId": "diwali",
			"templateId": cardtmpl.Default,
			"imageIndex": 0,
			"message":    "Wishing you a Diwali full of light.",
			"senderName": "Asha",
		},
		"templates": cardtmpl.IDs(),
	})
}

type mcpRequest struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

type mcpResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MCP dispatches one tool call: {tool, arguments}.
func (a *API) MCP(w http.ResponseWriter, r *http.Request) {
	if err := simulateLatency(r.Context(), a.latency); err != nil {
		return
	}

	var req mcpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, mcpResponse{Error: err.Error()})
		return
	}

	out, err := a.tools.Run(r.Context(), req.Tool, req.Arguments)
	if err != nil {
		status := tools.Status(err)
		msg := err.Error()
		if status == http.StatusInternalServerError && !errors.Is(err, tools.ErrUnknownTool) {
			slog.Error("mcp tool failed", "tool", req.Tool, "error", err)
			msg = "tool execution failed"
		}
		writeJSON(w, status, mcpResponse{Error: msg})
		return
	}
	if req.Tool == tools.CreateGreeting {
		if g, ok := out.(*tools.Greeting); ok {
			a.record(r.Context(), models.EventCardGenerated, g.FestivalID, g.Template)
		}
	}
	writeJSON(w, http.StatusOK, mcpResponse{Success: true, Data: out})
}

// MCPStatus reports that the tool endpoint is up.
func (a *API) MCPStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"backend":   "tyohaarify",
		"version":   a.version,
		"tools":     tools.Names,
	})
}

// Placeholder serves an SVG of the requested size, e.g. /api/placeholder/400x300.
func (a *API) Placeholder(w http.ResponseWriter, r *http.Request) {
	width, height, err := parseSize(chi.URLParam(r, "size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	label := r.URL.Query().Get("text")
	if label == "" {
		label = fmt.Sprintf("%d×%d", width, height)
	}
	fontSize := max(10, min(width, height)/8)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="%d" height="%d" fill="#f0e6d8"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="%d" fill="#8a7560">%s</text>`+
		`</svg>`,
		width, height, width, height, width, height, fontSize, html.EscapeString(label))
}

// parseSize parses "WxH" and clamps each side to 1..maxPlaceholderSide.
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	clamp := func(n int) int { return max(1, min(n, maxPlaceholderSide)) }
	return clamp(w), clamp(h), nil
}

type suggestRequest struct {
	FestivalID string `json:"festivalId"`
	Tone       string `json:"tone"`
	Recipient  string `json:"recipient"`
}

// Suggest returns greeting message suggestions for a festival.
func (a *API) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FestivalID) == "" {
		writeError(w, http.StatusBadRequest, "festivalId is required")
		return
	}
	f, ok := a.festivals.Find(req.FestivalID)
	if !ok {
		writeError(w, http.StatusNotFound, "festival not found")
		return
	}

	var suggestions []ai.Suggestion
	if a.suggester != nil {
		suggestions = a.suggester.Suggest(r.Context(), f, req.Tone, req.Recipient)
	} else {
		suggestions = ai.Canned(f, req.Tone, req.Recipient)
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type analyticsRequest struct {
	Event      models.EventType `json:"event"`
	FestivalID string           `json:"festivalId"`
	TemplateID string           `json:"templateId"`
}

// Analytics accepts a UI event. The response is 202 whether or not the
// event could be stored.
func (a *API) Analytics(w http.ResponseWriter, r *http.Request) {
	var req analyticsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidEventType(req.Event) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event %q", req.Event))
		return
	}
	if req.FestivalID != "" {
		if _, ok := a.festivals.Find(req.FestivalID); !ok {
			writeError(w, http.StatusNotFound, "festival not found")
			return
		}
	}
	recorded := a.record(r.Context(), req.Event, req.FestivalID, req.TemplateID)
	writeJSON(w, http.StatusAccepted, map[string]bool{"recorded": recorded})
}
