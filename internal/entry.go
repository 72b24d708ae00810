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

	"github.com/starford/orgstamp/internal/api"
	"github.com/starford/orgstamp/internal/index"
	"github.com/starford/orgstamp/internal/mcpserver"
	"github.com/starford/orgstamp/internal/noteservice"
	"github.com/starford/orgstamp/internal/sse"
	"github.com/starford/orgstamp/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Vault is an opened, synced notes directory with its index.
type Vault struct {
	Service *noteservice.Service
	Store   *storage.FS
	db      *index.DB
}

// Close releases the index and the vault directory.
func (v *Vault) Close() error {
	return errors.Join(v.db.Close(), v.Store.Close())
}

// OpenVault opens storage and the index, runs an initial sync and returns
// the note service. Extra service options are applied after the defaults.
func OpenVault(opts []Option, svcOpts ...noteservice.Option) (*Vault, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.openVault(svcOpts...)
}

func (a *application) log() *slog.Logger {
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	return a.logger
}

func (a *application) openVault(svcOpts ...noteservice.Option) (*Vault, error) {
	cfg := a.config
	logger := a.log()

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	if rep, err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("vault synced",
			slog.Int("indexed", len(rep.Indexed)),
			slog.Int("removed", len(rep.Removed)))
	}

	opts := append([]noteservice.Option{
		noteservice.WithClock(a.clock),
		noteservice.WithLogger(logger),
	}, svcOpts...)
	return &Vault{Service: noteservice.NewService(store, db, opts...), Store: store, db: db}, nil
}

// Run starts the HTTP server, the vault watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.log()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Any("extensions", cfg.Vault.Extensions),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	vault, err := app.openVault(noteservice.WithStampHook(func(ins noteservice.Inserted) {
		broker.PublishStamp(sse.StampData{
			Path:   ins.Path,
			Stamp:  ins.Stamp,
			Line:   ins.Position.Line,
			Column: ins.Position.Column,
		})
	}))
	if err != nil {
		return err
	}
	defer vault.Close()

	apiRouter := api.NewRouter(vault.Service,
		api.Defaults{Active: cfg.Stamp.Active, AgendaDays: cfg.Stamp.AgendaDays},
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := vault.db.Ping(req.Context()); err != nil {
			logger.Warn("readiness: index unreachable", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, "index unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, vault.db, vault.Store, vault.Store.Root(), logger, broker.PublishNoteEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stops the watcher once the server is down.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
// Logs go to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	cfg := app.config

	vault, err := app.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	// Runs before vault.Close so the watcher never touches a closed index.
	defer func() {
		cancel()
		<-watchDone
	}()
	go func() {
		defer close(watchDone)
		if err := index.Watch(watchCtx, vault.db, vault.Store, vault.Store.Root(), app.logger, nil); err != nil {
			app.logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
	}()

	srv := mcpserver.New(vault.Service, mcpserver.Defaults{
		Active:     cfg.Stamp.Active,
		AgendaDays: cfg.Stamp.AgendaDays,
	})
	app.logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	return srv.ServeStdio()
}
