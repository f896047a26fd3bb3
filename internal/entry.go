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

	"github.com/starford/notemaster/internal/ai"
	"github.com/starford/notemaster/internal/api"
	"github.com/starford/notemaster/internal/backup"
	"github.com/starford/notemaster/internal/mcpserver"
	"github.com/starford/notemaster/internal/models"
	"github.com/starford/notemaster/internal/persist"
	"github.com/starford/notemaster/internal/sse"
	"github.com/starford/notemaster/internal/store"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

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
		slog.String("sqlite_path", cfg.Data.SQLitePath),
		slog.String("backup_dir", cfg.Data.BackupDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, slot, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer slot.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Hint connected clients to refresh after every mutation.
	st.OnMutation(func(models.Snapshot) {
		broker.PublishStateUpdated()
	})

	chat := ai.NewChat(st, ai.NewHTTPTransport(60*time.Second), logger)

	// Backup directory watcher (optional).
	var watcher *backup.Watcher
	if cfg.Data.BackupDir != "" {
		if err := os.MkdirAll(cfg.Data.BackupDir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
		watcher, err = backup.NewWatcher(cfg.Data.BackupDir)
		if err != nil {
			return fmt.Errorf("init backup watcher: %w", err)
		}
	}

	// The SSE endpoint goes through the router so it sits behind auth like
	// every other /api route.
	apiRouter := api.NewRouter(st, chat, watcher, cfg.Data.BackupDir,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the backup directory and forward events over SSE.
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, logger, func(kind, name string) {
				broker.PublishBackupEvent(kind, name)
			}); err != nil {
				logger.Warn("backup watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

// RunMCP starts the MCP server on stdio over the persisted state.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	// Logs go to stderr so stdout stays clean for the MCP transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))

	st, slot, err := openStore(app.config, logger)
	if err != nil {
		return err
	}
	defer slot.Close()

	return mcpserver.New(st).ServeStdio()
}

// openStore opens the SQLite slot, seeds the store from the persisted
// snapshot when one exists, and installs the save-on-mutation listener.
// Save failures are logged, never surfaced to the mutation caller.
func openStore(cfg *Config, logger *slog.Logger) (*store.Store, persist.Slot, error) {
	slot, err := persist.Open(cfg.Data.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}

	st := store.New()
	snap, ok, err := slot.Load()
	if err != nil {
		slot.Close()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	if ok {
		st.Seed(snap)
	}
	st.Initialize()

	st.OnMutation(func(snap models.Snapshot) {
		if err := slot.Save(snap); err != nil {
			logger.Error("state save failed", slog.String("error", err.Error()))
		}
	})

	// Persist the initialized state so a fresh database is not empty
	// until the first user mutation.
	if err := slot.Save(st.Snapshot()); err != nil {
		logger.Warn("initial state save failed", slog.String("error", err.Error()))
	}

	return st, slot, nil
}
