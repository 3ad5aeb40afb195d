package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/go-chi/chi/v5"
)

var featureNames = []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

type predictionLogRequest struct {
	UserID         *string        `json:"userId"`
	InputFeatures  map[string]any `json:"inputFeatures"`
	Prediction     map[string]any `json:"prediction"`
	ProcessingTime *int64         `json:"processingTime"`
	SessionID      string         `json:"sessionId"`
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (req *predictionLogRequest) toLog() (*models.PredictionLog, string) {
	switch {
	case req.UserID == nil:
		return nil, "Missing required field: userId"
	case req.InputFeatures == nil:
		return nil, "Missing required field: inputFeatures"
	case req.Prediction == nil:
		return nil, "Missing required field: prediction"
	}

	values := make(map[string]float64, len(featureNames))
	for _, name := range featureNames {
		raw, ok := req.InputFeatures[name]
		if !ok {
			return nil, fmt.Sprintf("Missing input feature: %s", name)
		}
		v, ok := number(raw)
		if !ok {
			return nil, fmt.Sprintf("Invalid value for feature: %s", name)
		}
		values[name] = v
	}

	crop, ok := req.Prediction["predicted_crop"].(string)
	if !ok {
		return nil, "Missing predicted_crop in prediction"
	}
	rawConfidence, ok := req.Prediction["confidence"]
	if !ok {
		return nil, "Missing confidence in prediction"
	}
	confidence, ok := number(rawConfidence)
	if !ok {
		return nil, "Invalid confidence value"
	}

	l := &models.PredictionLog{
		UserID: *req.UserID,
		Features: models.PredictionFeatures{
			N: values["N"], P: values["P"], K: values["K"],
			Temperature: values["temperature"], Humidity: values["humidity"],
			PH: values["ph"], Rainfall: values["rainfall"],
		},
		PredictedCrop: crop,
		Confidence:    confidence,
		SessionID:     req.SessionID,
	}
	if req.ProcessingTime != nil {
		l.ProcessingMS = *req.ProcessingTime
	}
	return l, ""
}

func (h *Handler) createPredictionLog(w http.ResponseWriter, r *http.Request) {
	var req predictionLogRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	l, msg := req.toLog()
	if msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !gateway.IdentityFromContext(r.Context()).CanActFor(l.UserID) {
		h.writeError(w, http.StatusForbidden, "Unauthorized to create logs for other users")
		return
	}

	client := clientInfo(r)
	l.IPAddress, l.UserAgent = client.IPAddress, client.UserAgent

	res, err := h.predictions.Record(r.Context(), l)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, object{
		"logId":   res.ID,
		"message": "Prediction log saved successfully",
	})
}

func (h *Handler) userStatistics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !gateway.IdentityFromContext(r.Context()).CanActFor(userID) {
		h.writeError(w, http.StatusForbidden, msgForbiddenUser)
		return
	}

	st, err := h.predictions.UserStatistics(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"statistics": st})
}

func (h *Handler) globalStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.predictions.GlobalStats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, object{"stats": st})
}

func (h *Handler) clearUserCache(w http.ResponseWriter, r *http.Request) {
	id := gateway.IdentityFromContext(r.Context())
	n := h.predictions.ClearUserCache(r.Context(), id.UserID)

	h.writeSuccess(w, http.StatusOK, object{"message": "Cache cleared successfully", "cleared": n})
}

func (h *Handler) clearAllCache(w http.ResponseWriter, r *http.Request) {
	n := h.predictions.ClearAll(r.Context())

	h.writeSuccess(w, http.StatusOK, object{"message": "Cache cleared successfully", "cleared": n})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.health(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			h.writeSuccess(w, http.StatusServiceUnavailable, object{"status": "unhealthy", "database": "unavailable"})
			return
		}
	}

	h.writeSuccess(w, http.StatusOK, object{
		"status":   "healthy",
		"database": "ok",
		"cache":    h.predictions.CacheStats(),
	})
}
