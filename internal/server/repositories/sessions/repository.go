package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// Repository persists login sessions. Rows are never deleted.
type Repository interface {
	Create(ctx context.Context, s *models.Session) (*models.Session, error)

	// GetByToken returns the session with its owner's username and email,
	// whatever its state; callers decide whether it is usable.
	GetByToken(ctx context.Context, token string) (*models.SessionView, error)

	// Touch refreshes last_activity_at. Concurrent touches are last-write-wins.
	Touch(ctx context.Context, token string, at time.Time) error

	// End deactivates an active session and reports whether this call did it.
	// Ending an ended or unknown session is not an error.
	End(ctx context.Context, token, reason string, at time.Time) (bool, error)

	// ListByUser returns up to limit sessions of userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.SessionView, error)
}
