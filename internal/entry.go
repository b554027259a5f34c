// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/actions"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/api"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/gateway"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/handoff"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/logview"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/mcpserver"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/preload"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/sse"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/store"
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
	logOut := io.Writer(os.Stdout)
	if app.logOutput != nil {
		logOut = app.logOutput
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("api_base_url", cfg.API.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the state store.
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Load persisted panel state over defaults.
	st, err := state.Load(db, cfg.API.HiddenSeed)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	scroller := sse.NewScroller(broker)

	// Remote API client reads the credential and profile lazily so a
	// handoff finished mid-run takes effect without a restart.
	gw := gateway.New(cfg.API.BaseURL, st.Credential, st.ProfileID)

	feed := logview.NewFeed()
	watcher := logview.NewWatcher(feed, st, broker, logger)
	svc := actions.New(st, gw, watcher.Reclassify, broker, logger)
	preloader := preload.New(st, scroller, broker, watcher.Reclassify, cfg.Preload.Delay(), nil, logger)
	machine := handoff.New(db, st, gw, broker, logger)

	// Pick up a credential parked by a previous page handoff.
	if resumed, err := machine.Resume(ctx); err != nil {
		logger.Warn("handoff resume failed", slog.String("error", err.Error()))
	} else if resumed {
		logger.Info("handoff resumed and committed")
	}

	handler := api.NewHandler(st, feed, watcher, svc, preloader, machine, scroller)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	g, gCtx := errgroup.WithContext(ctx)

	// Classification watcher.
	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	// Optional log-feed tailer.
	if cfg.Feed.Path != "" {
		g.Go(func() error {
			return logview.TailFeed(gCtx, feed, cfg.Feed.Path, logger)
		})
	}

	// Auto-refresh ticker.
	refresh := logview.NewRefreshTicker(st, broker, 0, logger)
	g.Go(func() error {
		return refresh.Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

// RunMCP serves the panel tools over MCP stdio. Logs go to stderr so
// stdout stays clean for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	mcpOut := io.Writer(os.Stderr)
	if app.logOutput != nil {
		mcpOut = app.logOutput
	}
	logger := slog.New(slog.NewJSONHandler(mcpOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	st, err := state.Load(db, cfg.API.HiddenSeed)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	gw := gateway.New(cfg.API.BaseURL, st.Credential, st.ProfileID)
	svc := actions.New(st, gw, func() {}, broker, logger)

	return mcpserver.New(st, svc).ServeStdio()
}
