// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"tyohaarify/internal/ai"
	"tyohaarify/internal/cache"
	"tyohaarify/internal/config"
	"tyohaarify/internal/database"
	"tyohaarify/internal/export"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/handlers"
	"tyohaarify/internal/middleware"
	"tyohaarify/internal/render"
	"tyohaarify/internal/router"
	"tyohaarify/internal/session"
	"tyohaarify/internal/storage"
	"tyohaarify/internal/store"
	"tyohaarify/internal/tools"
	"tyohaarify/web"
)

// purgeInterval is how often serve drops expired share links.
const purgeInterval = time.Hour

func serve(ctx context.Context, cfg *config.Config, addr string) error {
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", addr,
		"base_url", cfg.BaseURL,
		"ai_provider", cfg.AIProvider,
	)

	festivals, err := openFestivals(cfg.FestivalsFile)
	if err != nil {
		return err
	}
	slog.Info("festivals loaded", "count", len(festivals.All()), "file", festivals.Path())

	// Valkey backs sessions and the page cache. The editor still works
	// without it, with sessions kept in memory.
	var (
		sessions  *session.Store
		pageCache *cache.PageCache
	)
	vk := openValkey(ctx, cfg)
	if vk != nil {
		defer vk.Close()
		sessions = session.NewStore(vk, !cfg.IsDev())
		pageCache = cache.NewPageCache(vk, cache.DefaultPageTTL)
	}

	// PostgreSQL holds analytics and share links.
	var (
		events    handlers.EventRecorder
		stats     tools.StatsReader
		shares    handlers.ShareOpener
		recorder  export.ShareRecorder
		analytics *store.AnalyticsStore
		shareRows *store.SharedCardStore
	)
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		slog.Warn("database unavailable, analytics and share links disabled", "error", err)
	} else {
		defer db.Close()
		analytics = store.NewAnalyticsStore(db)
		shareRows = store.NewSharedCardStore(db)
		events, stats = analytics, analytics
		shares, recorder = shareRows, shareRows
	}

	// S3 storage for shared artifacts is optional.
	var (
		objects export.ObjectStore
		urls    handlers.ObjectURLs
	)
	s3Client, err := storage.New(storageOptions(cfg))
	switch {
	case err != nil:
		slog.Warn("s3 storage unavailable, shares are manual", "error", err)
	case s3Client == nil:
		slog.Warn("s3 storage not configured, shares are manual")
	default:
		objects, urls = s3Client, s3Client
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "public_bucket", cfg.S3BucketPublic)
	}

	registry := ai.NewRegistry(cfg.AIProvider, providerConfigs(cfg))
	slog.Info("ai providers initialized",
		"active", cfg.AIProvider,
		"available", registry.Available(),
		"moderation", registry.Moderates(),
	)

	gen := generator.New(festivals)
	svc := tools.NewService(gen, registry, stats)

	hub := generator.NewHub(gen, 0, 0, nil)
	go hub.Run(ctx)
	defer hub.Close()

	browser := export.NewBrowser(cfg.ChromeBin, cfg.BaseURL)
	defer browser.Close()
	exportOpts := []export.Option{export.WithTimeout(cfg.ExportTimeout)}
	if browser.Available() {
		exportOpts = append(exportOpts, export.WithBrowser(browser))
	} else {
		slog.Warn("chromium not found, exports use the built-in compositor and webp is disabled")
	}
	exporter := export.New(gen, exportOpts...)
	sharer := export.NewSharer(objects, recorder, cfg.BaseURL)

	if festivals.Path() != "" {
		go func() {
			err := festivals.Watch(ctx, func() {
				if pageCache != nil {
					pageCache.InvalidateAll(context.Background())
				}
			})
			if err != nil {
				slog.Error("festival watcher stopped", "error", err)
			}
		}()
	}

	if shareRows != nil {
		go purgeLoop(ctx, shareRows, s3Client)
	}

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	// Replicas sharing Valkey share one budget per client.
	var limiter middleware.Limiter
	switch {
	case cfg.RateLimit <= 0:
	case vk != nil:
		limiter = middleware.NewValkeyLimiter(vk, cfg.RateLimit, time.Minute)
	default:
		mem := middleware.NewMemoryLimiter(cfg.RateLimit, time.Minute)
		defer mem.Stop()
		limiter = mem
	}

	r := router.New(
		handlers.NewAPI(svc, festivals, ai.NewSuggester(registry), events, cfg.MockLatency, Version),
		handlers.NewExports(gen, exporter, sharer, shares, urls, events),
		handlers.NewPages(renderer, gen, hub, sessions, pageCache, events),
		limiter,
		web.Static(),
	)

	// WriteTimeout must accommodate browser exports and suggestion calls.
	// The preview stream clears its own deadline.
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// openFestivals loads the catalog from path, or the built-in catalog when
// path is empty.
func openFestivals(path string) (*festival.Store, error) {
	if path == "" {
		return festival.NewDefault()
	}
	return festival.Open(path)
}

// openDatabase connects to PostgreSQL and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	version, err := database.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("database connected", "host", cfg.DBHost, "name", cfg.DBName, "schema_version", version)
	return db, nil
}

// openValkey connects to Valkey or returns nil with a warning.
func openValkey(ctx context.Context, cfg *config.Config) *redis.Client {
	vk, err := cache.ConnectValkey(ctx, cache.ValkeyOptions{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		slog.Warn("valkey unavailable, falling back to memory", "error", err)
		return nil
	}
	slog.Info("valkey connected", "host", cfg.ValkeyHost, "port", cfg.ValkeyPort)
	return vk
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3BucketPublic,
		PublicURL: cfg.S3PublicURL,
	}
}

func providerConfigs(cfg *config.Config) map[string]ai.ProviderConfig {
	return map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"mistral": {APIKey: cfg.MistralAPIKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
		"claude":  {APIKey: cfg.ClaudeAPIKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
	}
}

// objectDeleter removes stored share artifacts.
type objectDeleter interface {
	Delete(ctx context.Context, bucket, key string) error
	PublicBucket() string
}

// purgeExpiredShares drops expired share rows and their stored files.
func purgeExpiredShares(ctx context.Context, shares *store.SharedCardStore, objects objectDeleter) (int, error) {
	keys, err := shares.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if objects != nil {
		for _, key := range keys {
			if err := objects.Delete(ctx, objects.PublicBucket(), key); err != nil {
				slog.Warn("failed to delete shared artifact", "key", key, "error", err)
			}
		}
	}
	return len(keys), nil
}

func purgeLoop(ctx context.Context, shares *store.SharedCardStore, s3Client *storage.Client) {
	var objects objectDeleter
	if s3Client != nil {
		objects = s3Client
	}
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purgeExpiredShares(ctx, shares, objects)
			if err != nil {
				slog.Error("share purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired shares purged", "count", n)
			}
		}
	}
}

// purge runs one cleanup pass for the purge command.
func purge(ctx context.Context, cfg *config.Config, analyticsAge time.Duration) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s3Client, err := storage.New(storageOptions(cfg))
	if err != nil {
		return err
	}
	var objects objectDeleter
	if s3Client != nil {
		objects = s3Client
	}

	n, err := purgeExpiredShares(ctx, store.NewSharedCardStore(db), objects)
	if err != nil {
		return err
	}
	slog.Info("expired shares purged", "count", n)

	if analyticsAge > 0 {
		removed, err := store.NewAnalyticsStore(db).Purge(ctx, time.Now().Add(-analyticsAge))
		if err != nil {
			return err
		}
		slog.Info("analytics events purged", "count", removed)
	}
	return nil
}
