package memory

import (
	"context"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/google/uuid"
)

type Activities struct{ s *Store }

func (r *Activities) Create(_ context.Context, a *models.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a.ID = uuid.NewString()
	c := *a
	r.s.activities = append(r.s.activities, &c)
	return nil
}

// ListBySession returns the session's activities, newest first.
func (r *Activities) ListBySession(_ context.Context, sessionID string) ([]*models.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.Activity, 0)
	for i := len(r.s.activities) - 1; i >= 0; i-- {
		if a := r.s.activities[i]; a.SessionID == sessionID {
			c := *a
			result = append(result, &c)
		}
	}
	return result, nil
}

// ForUser returns the activities of userID in insertion order.
func (r *Activities) ForUser(userID string) []models.Activity {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Activity
	for _, a := range r.s.activities {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out
}
