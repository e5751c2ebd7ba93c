// Copyright (c) 2026 Authgate. All rights reserved.

// Command api is the entry point for the Authgate HTTP server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables (weak signing secrets
//     refuse to start here).
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis (optional; enables shared rate limiting).
//  5. Run database migrations (idempotent).
//  6. Build the token service, rate limiter, and gate.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/authgate/authgate/internal/api"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/gate"
	"github.com/authgate/authgate/internal/platform/config"
	"github.com/authgate/authgate/internal/platform/constants"
	"github.com/authgate/authgate/internal/platform/migration"
	pgstore "github.com/authgate/authgate/internal/platform/postgres"
	"github.com/authgate/authgate/internal/platform/ratelimit"
	redisstore "github.com/authgate/authgate/internal/platform/redis"
	"github.com/authgate/authgate/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Authgate] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Int("rate_limit_max", cfg.RateLimitMax),
		slog.Int("rate_limit_window_seconds", cfg.RateLimitWindowSeconds),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// appCtx outlives startup and cancels background workers on shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Rate Limiter (Redis-backed when configured) ────────────────────
	var limiter ratelimit.Limiter
	var checkCache func() error

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		limiter, err = ratelimit.NewRedis(rdb, cfg.RateLimitMax, cfg.RateLimitWindow())
		must(log, err, "build redis rate limiter")
		checkCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
		log.Info("rate_limiter_ready", slog.String("backend", "redis"))
	} else {
		memoryLimiter, err := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow())
		must(log, err, "build memory rate limiter")
		memoryLimiter.StartJanitor(appCtx)
		limiter = memoryLimiter
		log.Info("rate_limiter_ready", slog.String("backend", "memory"))
	}

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	// A weak signing secret is a refuse-to-start condition, not a warning.
	tokenService, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: checkCache,
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	authService := auth.NewService(userRepository, sessionRepository, tokenService)
	authHandler := auth.NewHandler(authService)

	// ── 9. Gate ───────────────────────────────────────────────────────────
	// The complete route-protection declaration, validated before serving.
	routes := []gate.Route{
		{Path: "/api/v1/auth/register", Policy: gate.Public()},
		{Path: "/api/v1/auth/login", Policy: gate.Public()},
		{Path: "/api/v1/auth/refresh", Policy: gate.Public()},
		{Path: "/api/v1/auth/logout", Policy: gate.Public()},
		{Path: "/api/v1/auth/rotate-key", Policy: gate.TokenProtected(sec.LevelMember)},
		{Path: "/api/v1/whoami", Policy: gate.TokenProtected(sec.LevelMember)},
	}
	if cfg.RoutePassword != "" {
		routes = append(routes, gate.Route{
			Path:   "/api/v1/status",
			Policy: gate.PasswordProtected(cfg.RoutePassword),
		})
	}

	mediator, err := gate.New(gate.Config{Routes: routes}, limiter, tokenService, authService)
	must(log, err, "build gate")

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	}

	server := api.NewServer(cfg, log, mediator, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
