// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tyohaarify/internal/export"
	"tyohaarify/internal/models"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestExport(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Exports.Export(rec, postJSON(t, "/api/export", map[string]any{
		"festivalId": "diwali",
		"templateId": "classic",
		"imageIndex": 0,
		"message":    "Shubh Deepavali",
		"format":     "png",
	}))
	assertStatus(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Diwali-greeting-card.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Header().Get("X-Export-Degraded") != "true" {
		t.Error("export without a browser should be marked degraded")
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), pngMagic) {
		t.Error("body is not a PNG")
	}
	if got := env.Events.types(); len(got) != 1 || got[0] != models.EventCardExported {
		t.Errorf("events = %v", got)
	}
}

func TestExportPresetAndPDF(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Exports.Export(rec, postJSON(t, "/api/export", map[string]any{
		"festivalId": "eid",
		"templateId": "split",
		"preset":     "facebook-post",
		"format":     "pdf",
		"paper":      "letter",
	}))
	assertStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "Eid-al-Fitr-facebook-post.pdf") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestExportErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"nothing chosen", map[string]any{"format": "png"}, http.StatusBadRequest},
		{"unknown format", map[string]any{"festivalId": "holi", "format": "gif"}, http.StatusBadRequest},
		{"webp needs a browser", map[string]any{"festivalId": "holi", "format": "webp"}, http.StatusBadRequest},
		{"unknown preset", map[string]any{"festivalId": "holi", "preset": "myspace"}, http.StatusBadRequest},
		{"unknown paper", map[string]any{"festivalId": "holi", "format": "pdf", "paper": "tabloid"}, http.StatusBadRequest},
		{"oversized", map[string]any{"festivalId": "holi", "width": 50000}, http.StatusBadRequest},
		{"unknown festival", map[string]any{"festivalId": "halloween"}, http.StatusNotFound},
		{"unknown template", map[string]any{"festivalId": "holi", "templateId": "comic"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Exports.Export(rec, postJSON(t, "/api/export", tt.body))
			assertStatus(t, rec, tt.status)
			if cd := rec.Header().Get("Content-Disposition"); cd != "" {
				t.Errorf("failed export set Content-Disposition %q", cd)
			}
			if body := decodeBody(t, rec); body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestExportEndpointsRejectRemoteImage(t *testing.T) {
	env := newTestEnv(t)

	endpoints := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/api/export", env.Exports.Export},
		{"/api/export/bundle", env.Exports.Bundle},
		{"/api/share", env.Exports.Share},
	}
	for _, ep := range endpoints {
		t.Run(ep.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ep.handler(rec, postJSON(t, ep.path, map[string]any{
				"festivalId":  "diwali",
				"templateId":  "classic",
				"customImage": "http://169.254.169.254/latest/meta-data/iam/security-credentials/",
				"format":      "png",
				"platform":    "whatsapp",
			}))
			assertStatus(t, rec, http.StatusBadRequest)
			if body := decodeBody(t, rec); body["error"] != "upload must be an image" {
				t.Errorf("error = %q", body["error"])
			}
		})
	}
}

func TestExportBundle(t *testing.T) {
	if testing.Short() {
		t.Skip("renders every preset")
	}
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Exports.Bundle(rec, postJSON(t, "/api/export/bundle", map[string]any{
		"festivalId": "christmas",
		"templateId": "classic",
		"format":     "jpeg",
	}))
	assertStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != len(export.Presets) {
		t.Fatalf("zip has %d files, want %d", len(zr.File), len(export.Presets))
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".jpg") {
			t.Errorf("unexpected entry %q", f.Name)
		}
	}
}

func TestShareAndOpen(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Exports.Share(rec, postJSON(t, "/api/share", map[string]any{
		"festivalId": "tihar",
		"templateId": "classic",
		"platform":   "whatsapp",
	}))
	assertStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	url, _ := body["url"].(string)
	token, _ := body["token"].(string)
	if token == "" || url != "https://cards.test/s/"+token {
		t.Fatalf("url/token = %q/%q", url, token)
	}
	if !strings.HasPrefix(body["intentUrl"].(string), "https://wa.me/") {
		t.Errorf("intentUrl = %v", body["intentUrl"])
	}
	if !strings.HasPrefix(body["qrCode"].(string), "data:image/png;base64,") {
		t.Error("missing QR code")
	}
	if len(env.Objects.objects) != 1 {
		t.Errorf("uploaded %d objects, want 1", len(env.Objects.objects))
	}

	open := func(token string) *httptest.ResponseRecorder {
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/s/"+token, nil), "token", token)
		rec := httptest.NewRecorder()
		env.Exports.SharedCard(rec, req)
		return rec
	}

	rec = open(token)
	assertStatus(t, rec, http.StatusFound)
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "https://cdn.test/shares/"+token+"/") {
		t.Errorf("Location = %q", loc)
	}
	if env.Shares.cards[token].AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", env.Shares.cards[token].AccessCount)
	}

	assertStatus(t, open("missing"), http.StatusNotFound)

	past := time.Now().Add(-time.Hour)
	env.Shares.cards[token].ExpiresAt = &past
	assertStatus(t, open(token), http.StatusGone)
}

func TestShareUnknownPlatform(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.Exports.Share(rec, postJSON(t, "/api/share", map[string]any{"festivalId": "holi", "platform": "myspace"}))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestSharedCardWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	exports := NewExports(env.Generator, nil, nil, nil, nil, nil)
	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/s/abc", nil), "token", "abc")
	rec := httptest.NewRecorder()
	exports.SharedCard(rec, req)
	assertStatus(t, rec, http.StatusNotFound)
}
