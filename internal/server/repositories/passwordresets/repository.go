package passwordresets

import (
	"context"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.PasswordResetToken) (*models.PasswordResetToken, error)
}
