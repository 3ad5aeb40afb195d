package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const msgUnknownUser = "Invalid user id"

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	LastLoginAt      *time.Time `json:"lastLoginAt"`
	SessionStartedAt time.Time  `json:"sessionStartedAt"`
}

func authResponse(res *services.AuthResult) object {
	return object{
		"token": res.Token,
		"user": userResponse{
			ID:               res.User.ID,
			Username:         res.User.Username,
			Email:            res.User.Email,
			LastLoginAt:      res.User.LastLoginAt,
			SessionStartedAt: res.Session.CreatedAt,
		},
	}
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.users.Signup(r.Context(), req.Username, req.Email, req.Password, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, authResponse(res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	res, err := h.users.Login(r.Context(), req.Username, req.Password, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, authResponse(res))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	id := gateway.IdentityFromContext(r.Context())

	if err := h.users.Logout(r.Context(), id.UserID, id.SessionID, id.SessionToken, clientInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"message": "Logout successful"})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id := gateway.IdentityFromContext(r.Context())

	h.writeSuccess(w, http.StatusOK, object{
		"user": object{"id": id.UserID, "username": id.Username, "email": id.Email},
	})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.users.RequestPasswordReset(r.Context(), req.Email, clientInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"message": "Password reset email sent if account exists"})
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Activity string         `json:"activity"`
		Details  map[string]any `json:"details"`
		UserID   string         `json:"userId"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Activity) == "" {
		h.writeError(w, http.StatusBadRequest, "Activity type is required")
		return
	}

	client := clientInfo(r)
	a := &models.Activity{
		UserID:       req.UserID,
		ActivityType: req.Activity,
		Details:      req.Details,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	}
	if id := gateway.IdentityFromContext(r.Context()); id != nil {
		a.UserID, a.SessionID = id.UserID, id.SessionID
	} else if a.UserID != "" {
		if _, err := uuid.Parse(a.UserID); err != nil {
			h.writeError(w, http.StatusBadRequest, msgUnknownUser)
			return
		}
	}

	if err := h.sessions.LogActivity(r.Context(), a); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			h.writeError(w, http.StatusBadRequest, msgUnknownUser)
			return
		}
		h.logger.Error(r.Context(), "activity not logged", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to log activity")
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"message": "Activity logged successfully"})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !gateway.IdentityFromContext(r.Context()).CanActFor(userID) {
		h.writeError(w, http.StatusForbidden, msgForbiddenUser)
		return
	}

	list, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"sessions": list})
}
