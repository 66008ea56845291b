// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"html"
	"net/http"
	"runtime/debug"
	"strings"
)

// errorPage is served when a page handler panics.
const errorPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>Something went wrong</title>
<link rel="stylesheet" href="/static/css/app.css"></head>
<body class="error-page">
<main>
<h1>Something went wrong</h1>
<p>The card maker hit an unexpected problem. Please refresh the page to try again.</p>
<p class="reference">Reference: %s</p>
<p><a href="/">Back to the gallery</a></p>
</main>
</body>
</html>`

// Recoverer catches panics in downstream handlers, logs the stack trace,
// and answers 500. API requests get a JSON error, pages get an HTML page
// that asks the user to refresh. Both quote the request id when Logger
// runs outside Recoverer.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			id := RequestID(r.Context())
			FromContext(r.Context()).Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			h := w.Header()
			h.Del("Content-Length")
			h.Del("Content-Disposition")
			if wantsJSON(r) {
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(panicBody{Error: "internal server error", RequestID: id})
				return
			}
			h.Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(strings.Replace(errorPage, "%s", html.EscapeString(id), 1)))
		}()

		next.ServeHTTP(w, r)
	})
}

type panicBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
