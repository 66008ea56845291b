// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package offline implements the edge caching worker. It sits in front of
// the origin, pre-caches the application shell, serves cached responses
// when the origin is unreachable, and queues card-creation requests for
// background sync.
package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// DefaultCacheName is the cache name prefix when none is configured.
const DefaultCacheName = "tyohaarify-v1"

// DefaultAssets is the application shell cached at install time.
var DefaultAssets = []string{
	"/",
	"/create",
	"/offline",
	"/static/css/app.css",
	"/static/js/app.js",
	"/static/manifest.json",
}

// Config configures a Worker.
type Config struct {
	CacheName string       // prefix for the static and dynamic caches
	Origin    string       // base URL of the origin, e.g. http://localhost:8080
	Assets    []string     // paths pre-cached by Install; DefaultAssets when nil
	Client    *http.Client // network client; a 10s-timeout client when nil
}

// Worker is the edge caching worker.
type Worker struct {
	storage CacheStorage
	queue   *Queue
	client  *http.Client
	origin  *url.URL
	static  string
	dynamic string
	assets  []string
	active  atomic.Bool
	now     func() time.Time
}

// New creates a worker. queue may be nil, in which case failed card
// requests are answered with an offline error instead of being queued.
func New(cfg Config, storage CacheStorage, queue *Queue) (*Worker, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("offline: invalid origin %q", cfg.Origin)
	}
	name := cfg.CacheName
	if name == "" {
		name = DefaultCacheName
	}
	assets := cfg.Assets
	if assets == nil {
		assets = DefaultAssets
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Worker{
		storage: storage,
		queue:   queue,
		client:  client,
		origin:  origin,
		static:  name + "-static",
		dynamic: name + "-dynamic",
		assets:  assets,
		now:     time.Now,
	}, nil
}

// CacheNames returns the static and dynamic cache names.
func (w *Worker) CacheNames() (static, dynamic string) {
	return w.static, w.dynamic
}

// Active reports whether Activate has completed.
func (w *Worker) Active() bool {
	return w.active.Load()
}

// Install fetches every shell asset and stores them in the static cache.
// It is all-or-nothing: if any asset fails, nothing is stored.
func (w *Worker) Install(ctx context.Context) error {
	type fetched struct {
		req   *http.Request
		entry *Entry
	}
	results := make([]fetched, 0, len(w.assets))
	for _, path := range w.assets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.resolve(path), nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		entry, err := readEntry(resp, w.now())
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("install %s: status %d", path, resp.StatusCode)
		}
		results = append(results, fetched{req: req, entry: entry})
	}

	cache, err := w.storage.Open(ctx, w.static)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	for _, r := range results {
		if err := cache.Put(ctx, r.req, r.entry); err != nil {
			return fmt.Errorf("install: %w", err)
		}
	}
	slog.Info("edge worker installed", "cache", w.static, "assets", len(results))
	return nil
}

// Activate deletes caches from previous versions and starts intercepting
// requests.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	for _, name := range names {
		if name == w.static || name == w.dynamic {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
		slog.Info("old edge cache deleted", "cache", name)
	}
	w.active.Store(true)
	slog.Info("edge worker active", "static", w.static, "dynamic", w.dynamic)
	return nil
}

// Start installs and activates the worker.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Install(ctx); err != nil {
		return err
	}
	return w.Activate(ctx)
}

func (w *Worker) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return w.origin.String() + path
	}
	return w.origin.ResolveReference(ref).String()
}

// sameOrigin reports whether u targets the origin.
func (w *Worker) sameOrigin(u *url.URL) bool {
	return u.Scheme == w.origin.Scheme && u.Host == w.origin.Host
}

// match looks req up in the static cache, then the dynamic one.
func (w *Worker) match(ctx context.Context, req *http.Request) (*Entry, error) {
	for _, name := range []string{w.static, w.dynamic} {
		cache, err := w.storage.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		e, err := cache.Match(ctx, req)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrNotCached) {
			return nil, err
		}
	}
	return nil, ErrNotCached
}

// store puts a successful GET response in the dynamic cache and returns a
// response the caller can still read.
func (w *Worker) store(ctx context.Context, req *http.Request, resp *http.Response) *http.Response {
	if req.Method != http.MethodGet || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp
	}
	entry, err := readEntry(resp, w.now())
	if err != nil {
		slog.Warn("edge cache read failed", "url", req.URL.String(), "error", err)
		return resp
	}
	cache, err := w.storage.Open(ctx, w.dynamic)
	if err == nil {
		err = cache.Put(ctx, req, entry)
	}
	if err != nil {
		slog.Warn("edge cache put failed", "url", req.URL.String(), "error", err)
	}
	return entry.Response(req)
}
