package memory

import (
	"context"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/google/uuid"
)

type PasswordResets struct{ s *Store }

func (r *PasswordResets) Create(_ context.Context, t *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.resets {
		if existing.Token == t.Token {
			return nil, common.ErrorAlreadyExists
		}
	}

	t.ID = uuid.NewString()
	c := *t
	r.s.resets = append(r.s.resets, &c)
	return t, nil
}

// Tokens returns the stored reset tokens of userID.
func (r *PasswordResets) Tokens(userID string) []models.PasswordResetToken {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.PasswordResetToken
	for _, t := range r.s.resets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}
