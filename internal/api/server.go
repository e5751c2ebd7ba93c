// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, the gate, and
all domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/gate"
	"github.com/authgate/authgate/internal/platform/config"
	"github.com/authgate/authgate/internal/platform/constants"
	"github.com/authgate/authgate/internal/platform/middleware"
	requestutil "github.com/authgate/authgate/internal/platform/request"
	"github.com/authgate/authgate/internal/platform/respond"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the credential lifecycle routes (register, login, refresh).
	Auth *auth.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups. The mediator sits after the infrastructure
// middleware so every application request passes through its admission
// pipeline.
func NewServer(cfg *config.Config, log *slog.Logger, mediator *gate.Gate, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration. Mounted
	// before the mediator so a saturated rate budget never hides liveness.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Every route below this point is admitted (or rejected) by the gate.
	r.Group(func(protected chi.Router) {
		protected.Use(mediator.Middleware())

		protected.Route("/api/v1", func(api chi.Router) {
			api.Mount("/auth", h.Auth.Routes())
			api.Get("/whoami", whoami)
			api.Get("/status", status)
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// whoami echoes the identity the gate resolved for this request.
//
// GET /api/v1/whoami
func whoami(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"level":   claims.Level,
	})
}

// status reports build identity for operators.
//
// GET /api/v1/status
//
// The route itself carries no handler-level protection; deployments that set
// ROUTE_PASSWORD get a password policy attached in cmd/api.
func status(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{
		"app":     constants.AppName,
		"version": constants.AppVersion,
	})
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
