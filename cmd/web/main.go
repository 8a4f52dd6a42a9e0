package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/store"
)

func newHandler(cfg *config.Config, sessions *services.Sessions, logger *slog.Logger) http.Handler {
	srv := server.NewServer(sessions, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Session(cfg.Session),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.CSRF(cfg.Security, logger),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"address", cfg.Address(),
		"database", cfg.Database,
		"session_ttl", cfg.Session.TTL,
		"session_max_active", cfg.Session.MaxActive,
	)

	loader, err := store.NewSQLLoader(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to configure sales loader", "error", err)
		os.Exit(1)
	}

	sessions := services.NewSessions(loader, cfg.Session.TTL, cfg.Session.MaxActive, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, sessions, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("dropping session tables", "stats", sessions.Stats())
		sessions.Close()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
