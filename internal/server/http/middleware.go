package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/go-chi/chi/v5/middleware"
)

// Client-facing messages for rejected credentials.
const (
	msgAuthorizationRequired = "Authorization header required"
	msgInvalidHeaderFormat   = "Invalid authorization header format"
	msgInvalidToken          = "Invalid or expired token"
	msgInvalidSession        = "Invalid session"
)

// RequireAuth rejects the request with 401 unless it carries a bearer token
// bound to a live session, and attaches the caller's identity otherwise.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.gateway.Required(r.Context(), r.Header.Get(common.AuthorizationHeaderName))
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, gatewayMessage(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(gateway.WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the caller's identity when the credentials are fully
// valid and lets the request through unauthenticated otherwise.
func (h *Handler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := h.gateway.Optional(r.Context(), r.Header.Get(common.AuthorizationHeaderName)); id != nil {
			r = r.WithContext(gateway.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func gatewayMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrAuthorizationRequired):
		return msgAuthorizationRequired
	case errors.Is(err, common.ErrInvalidAuthHeaderFormat):
		return msgInvalidHeaderFormat
	case errors.Is(err, common.ErrInvalidToken):
		return msgInvalidToken
	default:
		return msgInvalidSession
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			h.logger.Error(r.Context(), "http request", fields...)
		case status >= 400:
			h.logger.Warn(r.Context(), "http request", fields...)
		default:
			h.logger.Info(r.Context(), "http request", fields...)
		}
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error(r.Context(), "panic recovered", "panic", rec, "request_id", middleware.GetReqID(r.Context()))
				h.writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
