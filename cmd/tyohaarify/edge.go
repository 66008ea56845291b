// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tyohaarify/internal/config"
	"tyohaarify/internal/offline"
)

// startRetry is the wait between install attempts while the origin is down.
const startRetry = 5 * time.Second

func runEdge(ctx context.Context, cfg *config.Config, memory bool) error {
	var storage offline.CacheStorage = offline.NewMemoryStorage()
	if !memory {
		if vk := openValkey(ctx, cfg); vk != nil {
			defer vk.Close()
			storage = offline.NewValkeyStorage(vk)
		}
	}

	queue, err := offline.OpenQueue(cfg.OfflineDBPath)
	if err != nil {
		return fmt.Errorf("open card queue: %w", err)
	}
	defer queue.Close()

	w, err := offline.New(offline.Config{CacheName: cfg.CacheName, Origin: cfg.OriginURL}, storage, queue)
	if err != nil {
		return err
	}

	for {
		err := w.Start(ctx)
		if err == nil {
			break
		}
		slog.Warn("edge install failed, retrying", "origin", cfg.OriginURL, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(startRetry):
		}
	}

	if cfg.SyncInterval > 0 {
		go w.RunSync(ctx, cfg.SyncInterval)
	}

	srv := &http.Server{
		Addr:         cfg.EdgeAddr(),
		Handler:      w.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("edge worker listening", "addr", srv.Addr, "origin", cfg.OriginURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("edge server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("edge forced to shutdown: %w", err)
	}
	slog.Info("edge worker stopped")
	return nil
}

// syncOnce replays the offline queue against the origin a single time.
func syncOnce(ctx context.Context, cfg *config.Config) (offline.SyncResult, error) {
	queue, err := offline.OpenQueue(cfg.OfflineDBPath)
	if err != nil {
		return offline.SyncResult{}, fmt.Errorf("open card queue: %w", err)
	}
	defer queue.Close()

	w, err := offline.New(offline.Config{CacheName: cfg.CacheName, Origin: cfg.OriginURL}, offline.NewMemoryStorage(), queue)
	if err != nil {
		return offline.SyncResult{}, err
	}
	return w.Sync(ctx, offline.SyncTag)
}
