// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// hopHeaders are connection-level headers a proxy must not forward.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// Handler returns the edge HTTP handler: control endpoints under /__edge/
// and every other request proxied through Fetch.
func (w *Worker) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/__edge/status", w.handleStatus)
	r.Post("/__edge/sync", w.handleSync)
	r.HandleFunc("/*", w.proxy)
	return r
}

func (w *Worker) handleStatus(rw http.ResponseWriter, r *http.Request) {
	pending := 0
	if w.queue != nil {
		n, err := w.queue.Len(r.Context())
		if err != nil {
			slog.Warn("edge status: queue length", "error", err)
		}
		pending = n
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"active":  w.Active(),
		"origin":  w.origin.String(),
		"static":  w.static,
		"dynamic": w.dynamic,
		"pending": pending,
	})
}

func (w *Worker) handleSync(rw http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = SyncTag
	}
	res, err := w.Sync(r.Context(), tag)
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, res)
}

func (w *Worker) proxy(rw http.ResponseWriter, r *http.Request) {
	target := *r.URL
	if !target.IsAbs() {
		target = *w.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	out.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	out.ContentLength = r.ContentLength

	resp, err := w.Fetch(r.Context(), out)
	if err != nil {
		slog.Warn("edge fetch failed", "method", r.Method, "url", target.String(), "error", err)
		writeJSON(rw, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			rw.Header().Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		rw.Header().Del(h)
	}
	rw.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(rw, resp.Body); err != nil {
		slog.Debug("edge response copy interrupted", "url", target.String(), "error", err)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}
