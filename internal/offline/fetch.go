// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// CardCreationPath is the endpoint whose failed POSTs are queued for sync.
const CardCreationPath = "/api/generate-card"

// CacheStatusHeader reports how the edge answered a request.
const CacheStatusHeader = "X-Edge-Cache"

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".avif": true,
}

// Fetch answers req. Before activation every request goes straight to the
// network. After activation requests are dispatched, in order, as
// cross-origin, API, image, navigation or other asset.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if !w.Active() || !w.sameOrigin(req.URL) {
		return w.client.Do(req)
	}

	switch {
	case strings.HasPrefix(req.URL.Path, "/api/"):
		return w.fetchAPI(ctx, req)
	case req.Method == http.MethodGet && isImage(req):
		return w.fetchImage(ctx, req)
	case req.Method == http.MethodGet && isNavigation(req):
		return w.fetchNavigation(ctx, req)
	case req.Method == http.MethodGet:
		return w.fetchAsset(ctx, req)
	default:
		return w.client.Do(req)
	}
}

func isImage(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "image" {
		return true
	}
	accept := req.Header.Get("Accept")
	if strings.HasPrefix(accept, "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(req.URL.Path))]
}

func isNavigation(req *http.Request) bool {
	return req.Header.Get("Sec-Fetch-Mode") == "navigate" ||
		strings.Contains(req.Header.Get("Accept"), "text/html")
}

// fetchAPI is network-first. Successful GETs refresh the dynamic cache;
// when the network fails a cached copy is served, card-creation POSTs are
// queued, and anything else gets a JSON 503.
func (w *Worker) fetchAPI(ctx context.Context, req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Method != http.MethodGet {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	resp, err := w.client.Do(req)
	if err == nil {
		return tag(w.store(ctx, req, resp), "network"), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Debug("edge api request failed", "method", req.Method, "path", req.URL.Path, "error", err)

	if req.Method == http.MethodGet {
		if e, merr := w.match(ctx, req); merr == nil {
			return tag(e.Response(req), "hit"), nil
		}
	}
	if req.Method == http.MethodPost && req.URL.Path == CardCreationPath && w.queue != nil {
		return w.enqueue(ctx, req, body)
	}
	return tag(offlineJSON(req), "offline"), nil
}

// fetchImage is cache-first, then network (cached on success), then an
// inline SVG placeholder.
func (w *Worker) fetchImage(ctx context.Context, req *http.Request) (*http.Response, error) {
	if e, err := w.match(ctx, req); err == nil {
		return tag(e.Response(req), "hit"), nil
	}
	resp, err := w.client.Do(req)
	if err == nil {
		return tag(w.store(ctx, req, resp), "miss"), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return tag(placeholderImage(req), "offline"), nil
}

// fetchNavigation is network-first; offline it falls back to the cached
// page, then the cached home page, then the built-in offline page.
func (w *Worker) fetchNavigation(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := w.client.Do(req)
	if err == nil {
		return tag(w.store(ctx, req, resp), "network"), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e, merr := w.match(ctx, req); merr == nil {
		return tag(e.Response(req), "hit"), nil
	}
	home, herr := http.NewRequestWithContext(ctx, http.MethodGet, w.resolve("/"), nil)
	if herr == nil {
		if e, merr := w.match(ctx, home); merr == nil {
			return tag(e.Response(req), "hit"), nil
		}
	}
	return tag(offlinePage(req), "offline"), nil
}

// fetchAsset is cache-first, then network (cached on success), then an
// empty stylesheet or script stub, else the network error.
func (w *Worker) fetchAsset(ctx context.Context, req *http.Request) (*http.Response, error) {
	if e, err := w.match(ctx, req); err == nil {
		return tag(e.Response(req), "hit"), nil
	} else if !errors.Is(err, ErrNotCached) {
		slog.Warn("edge cache match failed", "url", req.URL.String(), "error", err)
	}
	resp, err := w.client.Do(req)
	if err == nil {
		return tag(w.store(ctx, req, resp), "miss"), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if stub := assetStub(req); stub != nil {
		return tag(stub, "offline"), nil
	}
	return nil, err
}

func tag(resp *http.Response, status string) *http.Response {
	resp.Header.Set(CacheStatusHeader, status)
	return resp
}
