package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
)

const (
	msgInternal      = "Internal server error"
	msgRequestJSON   = "Request must be JSON"
	msgInvalidJSON   = "Invalid JSON body"
	msgForbiddenUser = "Unauthorized access to user data"
	maxBodyBytes     = 1 << 20
	healthTimeout    = 2 * time.Second
)

type object = map[string]any

func (h *Handler) timestamp() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess writes data with a timestamp added.
func (h *Handler) writeSuccess(w http.ResponseWriter, status int, data object) {
	out := make(object, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["timestamp"] = h.timestamp()
	writeJSON(w, status, out)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, object{"error": msg, "timestamp": h.timestamp()})
}

// writeServiceError maps a service error onto a status and a message that
// reveals no internals.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, common.ErrorValidation):
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, common.ErrorAlreadyExists):
		h.writeError(w, http.StatusBadRequest, "Username or email already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, common.ErrorForbidden):
		h.writeError(w, http.StatusForbidden, msgForbiddenUser)
	case errors.Is(err, services.ErrSessionCreation):
		h.logger.Error(r.Context(), "session creation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create session")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// validationMessage strips the sentinel prefix from a wrapped validation
// error.
func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, common.ErrorValidation.Error()+": "); ok {
		return rest
	}
	return msg
}

// decodeJSON reads a JSON request body into dst, writing the error response
// itself when it fails.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/json" {
		h.writeError(w, http.StatusBadRequest, msgRequestJSON)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// clientInfo reads the caller's address after RealIP has applied the
// forwarding headers, and caps the user agent at MaxUserAgentLength
// characters.
func clientInfo(r *http.Request) models.ClientInfo {
	return models.ClientInfo{
		IPAddress: remoteIP(r.RemoteAddr),
		UserAgent: truncateRunes(r.UserAgent(), common.MaxUserAgentLength),
	}
}

// remoteIP returns the host part of addr, or "" when it is not an IP.
func remoteIP(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	if net.ParseIP(host) == nil {
		return ""
	}
	return host
}

// truncateRunes returns s as valid UTF-8 holding at most max characters.
func truncateRunes(s string, max int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
