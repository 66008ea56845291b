// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func panicking(v any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Diwali-greeting-card.png"`)
		panic(v)
	})
}

func TestRecoverer(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		accept   string
		value    any
		wantType string
		wantBody string
	}{
		{name: "page panic", path: "/create", value: "boom", wantType: "text/html", wantBody: "refresh the page"},
		{name: "api panic", path: "/api/export", value: errors.New("encoder crashed"), wantType: "application/json", wantBody: `"error":"internal server error"`},
		{name: "json accept outside api", path: "/create/state", accept: "application/json", value: 42, wantType: "application/json", wantBody: `"error"`},
		{name: "browser accept", path: "/cards/diwali/classic/0", accept: "text/html,application/json", value: 42, wantType: "text/html", wantBody: "Back to the gallery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rr := httptest.NewRecorder()
			Recoverer(panicking(tt.value)).ServeHTTP(rr, req)

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
				t.Errorf("Content-Type: got %q, want %q", ct, tt.wantType)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.wantBody)
			}
			if rr.Header().Get("Content-Disposition") != "" {
				t.Error("Content-Disposition should be dropped")
			}
		})
	}
}

func TestRecovererQuotesRequestID(t *testing.T) {
	const id = "01JBQ7K2ZQ0000000000000000"
	for _, path := range []string{"/api/export", "/create"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(RequestIDHeader, id)
		rr := httptest.NewRecorder()
		Logger(Recoverer(panicking("boom"))).ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s: status %d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), id) {
			t.Errorf("%s: body %q should quote the request id", path, rr.Body.String())
		}
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want ErrAbortHandler", rec)
		}
	}()
	Recoverer(panicking(http.ErrAbortHandler)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/create/events", nil))
	t.Error("ErrAbortHandler should propagate")
}

func TestRecovererPassThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Export-Degraded", "1")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	Recoverer(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/create/state", nil))

	if rr.Code != http.StatusAccepted || rr.Body.String() != "ok" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Export-Degraded") != "1" {
		t.Error("handler headers should be kept")
	}
}
