// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrNotCached is returned by Cache.Match when no entry exists.
var ErrNotCached = errors.New("offline: not cached")

// Entry is a stored response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Cache holds responses keyed by request method and URL. Put overwrites,
// so concurrent writes for one URL resolve to the last one.
type Cache interface {
	Match(ctx context.Context, req *http.Request) (*Entry, error)
	Put(ctx context.Context, req *http.Request, entry *Entry) error
}

// CacheStorage is a set of named caches.
type CacheStorage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Delete(ctx context.Context, name string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// requestKey identifies a request within a cache.
func requestKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// readEntry drains resp into an Entry and replaces resp.Body so the caller
// can still use the response.
func readEntry(resp *http.Response, now time.Time) (*Entry, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return &Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now,
	}, nil
}

// Response rebuilds an http.Response for req from the entry.
func (e *Entry) Response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
