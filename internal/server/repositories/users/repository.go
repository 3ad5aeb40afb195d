package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// Repository persists accounts and their lockout counters.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetActiveByUsername(ctx context.Context, username string) (*models.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// RecordLoginSuccess zeroes the failure counter, clears any lockout and
	// stamps the last login time.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error

	// RecordLoginFailure increments the failure counter and, once it reaches
	// threshold, sets locked_until to lockUntil, in one atomic statement.
	// Rows already locked at now are left untouched and reported as
	// common.ErrorNotFound.
	RecordLoginFailure(ctx context.Context, id string, threshold int, now, lockUntil time.Time) (*models.LoginFailure, error)
}
