// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/algiz/internal/api"
	"github.com/starford/algiz/internal/attach"
	"github.com/starford/algiz/internal/indexpub"
	"github.com/starford/algiz/internal/notestore"
	"github.com/starford/algiz/internal/sse"
	"github.com/starford/algiz/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("blob_dir", cfg.Blobs.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure working directories exist.
	for _, dir := range []string{cfg.Extraction.SpoolDir, cfg.Extraction.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	// Initialize the authoritative store.
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Blob storage for attachment binaries.
	blobs, err := attach.NewBlobStore(cfg.Blobs.Dir)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	// Async index publisher feeding the full-text search tables.
	publisher := indexpub.New(db, logger)
	defer publisher.Close()

	// SSE broker for the lifecycle event stream.
	broker := sse.NewBroker()
	defer broker.Close()

	// Domain services.
	svc := notestore.NewService(db, publisher, broker)
	registry := attach.NewRegistry(db, blobs, broker, logger)

	// Requeue attachments left pending by a previous run.
	if err := registry.Recover(ctx); err != nil {
		logger.Warn("attachment recovery failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, registry, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Cancel the run context on SIGINT/SIGTERM so the worker pool and the
	// results watcher wind down together with the HTTP server.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Extraction dispatch pool.
	g.Go(func() error {
		return registry.RunWorkers(gCtx, cfg.Extraction.Workers, cfg.Extraction.SpoolDir)
	})

	// Extraction results watcher.
	g.Go(func() error {
		return registry.WatchResults(gCtx, cfg.Extraction.ResultsDir, logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown once the run context ends.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
