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
	"log/slog"
	"net/http"
	"time"
)

// SyncTag is the background-sync tag that drains the card queue.
const SyncTag = "card-creation"

// SyncResult summarises one sync run.
type SyncResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// Sync retries queued requests for tag. Items the origin accepts with a
// 2xx are removed; every other outcome leaves the item for the next run.
// A 429 ends the run early. Unknown tags are a no-op.
func (w *Worker) Sync(ctx context.Context, tag string) (SyncResult, error) {
	var res SyncResult
	if tag != SyncTag || w.queue == nil {
		return res, nil
	}

	pending, err := w.queue.List(ctx)
	if err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}
	for _, card := range pending {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		if err := w.deliver(ctx, card.Method, card.URL, card.Header, card.Body); err != nil {
			slog.Debug("queued card not delivered", "id", card.ID, "attempts", card.Attempts+1, "error", err)
			if merr := w.queue.MarkAttempt(ctx, card.ID); merr != nil {
				return res, fmt.Errorf("sync: %w", merr)
			}
			var se *statusError
			if errors.As(err, &se) && se.code == http.StatusTooManyRequests {
				break
			}
			continue
		}
		if err := w.queue.Delete(ctx, card.ID); err != nil {
			return res, fmt.Errorf("sync: %w", err)
		}
		res.Delivered++
	}

	remaining, err := w.queue.Len(ctx)
	if err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}
	res.Remaining = remaining
	if res.Attempted > 0 {
		slog.Info("card queue synced", "attempted", res.Attempted, "delivered", res.Delivered, "remaining", res.Remaining)
	}
	return res, nil
}

// statusError is a non-2xx answer from the origin.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "origin answered " + e.status }

// deliver replays one request. Only a 2xx answer counts as delivered.
func (w *Worker) deliver(ctx context.Context, method, url string, header map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			slog.Warn("queued card rejected by origin", "url", url, "status", resp.StatusCode)
		}
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}
	return nil
}

// RunSync triggers Sync on every tick until ctx is cancelled.
func (w *Worker) RunSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sync(ctx, SyncTag); err != nil && ctx.Err() == nil {
				slog.Warn("background sync failed", "error", err)
			}
		}
	}
}
