package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/google/uuid"
)

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, sess *models.Session) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[sess.SessionToken]; ok {
		return nil, common.ErrorAlreadyExists
	}

	sess.ID = uuid.NewString()
	sess.IsActive = true
	sess.LastActivityAt = sess.CreatedAt

	c := *sess
	r.s.sessions[sess.SessionToken] = &c
	return sess, nil
}

func (r *Sessions) GetByToken(_ context.Context, token string) (*models.SessionView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u, ok := r.s.users[sess.UserID]
	if !ok {
		return nil, common.ErrorNotFound
	}

	v := view(sess)
	v.Username, v.Email = u.Username, u.Email
	return v, nil
}

func (r *Sessions) Touch(_ context.Context, token string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sess, ok := r.s.sessions[token]; ok {
		sess.LastActivityAt = at
	}
	return nil
}

func (r *Sessions) End(_ context.Context, token, reason string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[token]
	if !ok || !sess.IsActive {
		return false, nil
	}
	sess.IsActive = false
	sess.EndedAt = &at
	sess.LogoutReason = reason
	return true, nil
}

func (r *Sessions) ListByUser(_ context.Context, userID string, limit int) ([]*models.SessionView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*models.SessionView
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			result = append(result, view(sess))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func view(s *models.Session) *models.SessionView {
	return &models.SessionView{
		ID:             s.ID,
		UserID:         s.UserID,
		SessionToken:   s.SessionToken,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
		IsActive:       s.IsActive,
		EndedAt:        copyTime(s.EndedAt),
		LogoutReason:   s.LogoutReason,
	}
}
