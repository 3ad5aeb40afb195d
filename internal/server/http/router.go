// Package http exposes the authentication, session and statistics
// endpoints over a chi router.
package http

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
)

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves the HTTP API.
type Handler struct {
	users       *services.UserService
	sessions    *services.SessionService
	predictions *services.PredictionService
	gateway     *gateway.Gateway
	health      HealthCheck
	clock       clockwork.Clock
	logger      logging.Logger
}

func NewHandler(users *services.UserService, sessions *services.SessionService, predictions *services.PredictionService,
	gw *gateway.Gateway, health HealthCheck, clock clockwork.Clock, logger logging.Logger) *Handler {
	return &Handler{
		users:       users,
		sessions:    sessions,
		predictions: predictions,
		gateway:     gw,
		health:      health,
		clock:       clock,
		logger:      logger.With("module", "http"),
	}
}

// NewRouter registers the routes and the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(h.recoverer)

	r.Get("/api/health", h.healthz)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
		r.Post("/reset-password", h.resetPassword)

		r.With(h.OptionalAuth).Post("/log-activity", h.logActivity)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/logout", h.logout)
			r.Get("/verify", h.verify)
			r.Get("/sessions/{userID}", h.listSessions)
		})
	})

	r.With(h.OptionalAuth).Get("/api/stats", h.globalStats)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/api/prediction-logs", h.createPredictionLog)
		r.Get("/api/users/{userID}/prediction-statistics", h.userStatistics)
		r.Post("/api/dashboard/cache/clear", h.clearUserCache)
		r.Post("/api/about/cache/clear", h.clearAllCache)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
