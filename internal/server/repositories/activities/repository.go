package activities

import (
	"context"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// Repository is the append-only session activity log.
type Repository interface {
	Create(ctx context.Context, a *models.Activity) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.Activity, error)
}
