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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/langcards/internal/api"
	"github.com/starford/langcards/internal/catalog"
	"github.com/starford/langcards/internal/mcpserver"
	"github.com/starford/langcards/internal/render"
	"github.com/starford/langcards/internal/search"
	"github.com/starford/langcards/internal/session"
	"github.com/starford/langcards/internal/sse"
	"github.com/starford/langcards/internal/storage"
)

const (
	noticeThrottle = 2 * time.Second
	sweepInterval  = time.Minute
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_source", cfg.Catalog.Source),
		slog.Bool("catalog_watch", cfg.Catalog.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider, closeProvider, err := newProvider(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("init catalog source: %w", err)
	}
	defer closeProvider()

	loader := catalog.NewLoader(provider, cfg.Catalog.Timeout, logger)
	renderer := render.NewRenderer(cfg.Render.LinkLabel, logger)

	// SSE broker.
	broker := sse.NewBroker(noticeThrottle)
	defer broker.Close()

	sessions := session.NewRegistry(loader, renderer, broker, cfg.Sessions.Max, logger)

	handler := api.NewHandler(loader, renderer, sessions, broker, cfg.Render.Title)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(handler))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	// Warm the catalog so the first page load does not pay for the fetch.
	// A failure here is retried by the next search.
	g.Go(func() error {
		if _, err := loader.Ensure(gCtx); err != nil {
			logger.Warn("initial catalog load failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		sessions.RunSweeper(gCtx, sweepInterval, cfg.Sessions.IdleTimeout)
		return nil
	})

	// Start file watcher with SSE callback.
	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := catalog.Watch(gCtx, cfg.Catalog.Path, logger, func(path string) {
				logger.Warn("catalog file changed; restart to serve the new version",
					slog.String("path", path))
				broker.PublishCatalogChange(path)
			})
			if err != nil {
				logger.Error("catalog watcher stopped", slog.String("error", err.Error()))
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

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

// RunMCP serves the catalog over MCP on stdin/stdout. Logs go to stderr
// so they never interleave with the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	provider, closeProvider, err := newProvider(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("init catalog source: %w", err)
	}
	defer closeProvider()

	loader := catalog.NewLoader(provider, cfg.Catalog.Timeout, logger)
	renderer := render.NewRenderer(cfg.Render.LinkLabel, logger)

	logger.Info("MCP server starting", slog.String("catalog", provider.Describe()))
	return mcpserver.New(loader, renderer, app.version).ServeStdio()
}

// RunSearch loads the catalog once and prints the cards matching query.
func RunSearch(ctx context.Context, query string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	out := app.out
	if out == nil {
		out = os.Stdout
	}

	provider, closeProvider, err := newProvider(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("init catalog source: %w", err)
	}
	defer closeProvider()

	loader := catalog.NewLoader(provider, cfg.Catalog.Timeout, logger)
	renderer := render.NewRenderer(cfg.Render.LinkLabel, logger)

	recs, err := search.Search(ctx, loader, query)
	if err != nil {
		return err
	}
	return render.WriteText(out, renderer.Cards(recs))
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// newProvider builds the catalog source described by cfg. The returned
// close func is always non-nil.
func newProvider(cfg CatalogConfig) (storage.Provider, func(), error) {
	noop := func() {}

	switch cfg.Source {
	case SourceFile:
		fsys, err := storage.NewFS(filepath.Dir(cfg.Path))
		if err != nil {
			return nil, noop, err
		}
		return fsys.Resource(filepath.Base(cfg.Path)), noop, nil
	case SourceHTTP:
		return storage.NewHTTP(cfg.URL, nil), noop, nil
	case SourceSQLite:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return db, func() { _ = db.Close() }, nil
	case SourceEmbedded, "":
		return storage.NewEmbedded(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
