// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/festivals/atlantis", nil))

	// Headers are set before the handler runs, so error responses carry them.
	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for h, v := range want {
		if got := rr.Header().Get(h); got != v {
			t.Errorf("%s: got %q, want %q", h, got, v)
		}
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	directives := map[string]string{}
	for _, d := range strings.Split(contentSecurityPolicy, ";") {
		name, value, _ := strings.Cut(strings.TrimSpace(d), " ")
		directives[name] = value
	}

	if directives["script-src"] != "'self'" {
		t.Errorf("script-src: got %q, inline scripts must stay blocked", directives["script-src"])
	}
	// Card templates carry inline styles and uploads are data: URLs.
	if !strings.Contains(directives["style-src"], "'unsafe-inline'") {
		t.Error("style-src should allow inline card styles")
	}
	if !strings.Contains(directives["img-src"], "data:") {
		t.Error("img-src should allow uploaded data: images")
	}
	// The preview is a srcdoc iframe.
	if !strings.Contains(directives["frame-src"], "data:") {
		t.Error("frame-src should allow the preview frame")
	}
}
