// Support chat server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ashureev/support-chat/internal/api"
	"github.com/ashureev/support-chat/internal/config"
	"github.com/ashureev/support-chat/internal/knowledge"
	"github.com/ashureev/support-chat/internal/matcher"
	"github.com/ashureev/support-chat/internal/metrics"
	"github.com/ashureev/support-chat/internal/middleware"
	"github.com/ashureev/support-chat/internal/store"
	"github.com/ashureev/support-chat/internal/support"
	"github.com/ashureev/support-chat/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"kb_path", cfg.KnowledgeBase.Path,
		"session_store", cfg.Session.Store,
		"session_ttl", cfg.Session.TTL,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtx := metrics.New(reg)

	// Initialize dependencies.
	sessions, err := store.Open(store.Kind(cfg.Session.Store), cfg.Session.DBPath)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := sessions.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store ready", "kind", cfg.Session.Store)

	kb := knowledge.NewFileLoader(cfg.KnowledgeBase.Path, logger, mtx)
	if _, err := kb.Issues(context.Background()); err != nil {
		// Requests will keep failing until the file appears; the server still starts.
		slog.Warn("Knowledge base not loadable at startup", "path", kb.Path(), "error", err)
	}

	m := &matcher.Matcher{Threshold: cfg.Match.Threshold, Floor: cfg.Match.Floor}
	svc := support.NewService(sessions, kb, m, mtx, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.KnowledgeBase.Watch {
		if err := kb.StartWatcher(ctx); err != nil {
			slog.Warn("Knowledge base watcher disabled", "error", err)
		}
	}
	store.StartSweeper(ctx, sessions, cfg.Session.TTL, cfg.Session.SweepInterval, mtx, svc.Forget)

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(sessions)
	supportHandler := api.NewSupportHandler(svc)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	supportHandler.RegisterRoutes(r)
	r.Handle("/metrics", mtx.Handler())

	// Serve embedded chat client (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
