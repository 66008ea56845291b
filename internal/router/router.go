// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// card server. It organizes routes into page, API and asset groups with
// appropriate middleware stacks.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tyohaarify/internal/handlers"
	"tyohaarify/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable API rate
// limiting; static may be nil when no assets are bundled.
func New(api *handlers.API, exports *handlers.Exports, pages *handlers.Pages, limiter middleware.Limiter, static fs.FS) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	if static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", staticHandler(static)))
	}
	r.Get("/images/festivals/{file}", pages.FestivalImage)

	// JSON API.
	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter))
		}

		r.Get("/generate-card", api.GenerateCardUsage)
		r.Post("/generate-card", api.GenerateCard)
		r.Get("/mcp", api.MCPStatus)
		r.Post("/mcp", api.MCP)
		r.Get("/placeholder/{size}", api.Placeholder)
		r.Post("/ai/suggest", api.Suggest)
		r.Post("/analytics", api.Analytics)

		r.Post("/export", exports.Export)
		r.Post("/export/bundle", exports.Bundle)
		r.Post("/share", exports.Share)
	})

	// Public pages.
	r.Get("/", pages.Gallery)
	r.Get("/festivals/{id}", pages.Festival)
	r.Get("/create", pages.Create)
	r.Post("/create/state", pages.UpdateState)
	r.Get("/create/events", pages.Events)
	r.Get("/cards/{festival}/{template}/{image}", pages.Card)
	r.Get("/offline", pages.Offline)
	r.Get("/s/{token}", exports.SharedCard)

	return r
}

// staticHandler serves bundled assets with a short cache lifetime so
// the edge worker revalidates them after a deploy.
func staticHandler(static fs.FS) http.Handler {
	files := http.FileServerFS(static)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
