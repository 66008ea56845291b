// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"tyohaarify/internal/models"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">` +
	`<rect width="400" height="300" fill="#f0e6d8"/>` +
	`<text x="200" y="150" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="18" fill="#8a7560">Image unavailable offline</text>` +
	`</svg>`

const offlineHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Offline · Tyohaarify</title>
<style>
body{margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;font-family:system-ui,sans-serif;background:#fff8ef;color:#4a3b2c;text-align:center}
main{max-width:28rem;padding:2rem}
h1{font-size:1.75rem;margin:0 0 .75rem}
button{margin-top:1rem;padding:.6rem 1.4rem;border:0;border-radius:999px;background:#ff9933;color:#fff;font-size:1rem;cursor:pointer}
</style>
</head>
<body>
<main>
<h1>You are offline</h1>
<p>Tyohaarify cannot reach the server right now. Cards you create will be sent once you are back online.</p>
<button onclick="location.reload()">Try again</button>
</main>
</body>
</html>
`

func synthesized(req *http.Request, status int, contentType, body string) *http.Response {
	e := &Entry{
		Status: status,
		Header: http.Header{"Content-Type": {contentType}, "Cache-Control": {"no-store"}},
		Body:   []byte(body),
	}
	return e.Response(req)
}

func jsonResponse(req *http.Request, status int, v any) *http.Response {
	raw, _ := json.Marshal(v)
	return synthesized(req, status, "application/json", string(raw))
}

func offlineJSON(req *http.Request) *http.Response {
	return jsonResponse(req, http.StatusServiceUnavailable, map[string]any{
		"error":   "offline",
		"message": "The server cannot be reached. Please try again when you are back online.",
	})
}

func placeholderImage(req *http.Request) *http.Response {
	return synthesized(req, http.StatusOK, "image/svg+xml", placeholderSVG)
}

func offlinePage(req *http.Request) *http.Response {
	return synthesized(req, http.StatusOK, "text/html; charset=utf-8", offlineHTML)
}

// OfflinePage returns the built-in offline document.
func OfflinePage() string {
	return offlineHTML
}

// assetStub returns an empty stylesheet or script for those asset types,
// or nil for anything else.
func assetStub(req *http.Request) *http.Response {
	switch strings.ToLower(path.Ext(req.URL.Path)) {
	case ".css":
		return synthesized(req, http.StatusOK, "text/css", "")
	case ".js", ".mjs":
		return synthesized(req, http.StatusOK, "application/javascript", "")
	}
	return nil
}

// enqueue stores a failed card-creation request and answers 503 with the
// queue id.
func (w *Worker) enqueue(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	header := make(map[string]string)
	for _, k := range []string{"Content-Type", "Accept", "Accept-Language"} {
		if v := req.Header.Get(k); v != "" {
			header[k] = v
		}
	}
	card := &models.PendingCard{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: header,
		Body:   body,
	}
	if err := w.queue.Enqueue(ctx, card); err != nil {
		return nil, err
	}
	return tag(jsonResponse(req, http.StatusServiceUnavailable, map[string]any{
		"queued": true,
		"id":     card.ID,
	}), "queued"), nil
}
