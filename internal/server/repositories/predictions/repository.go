package predictions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// Repository stores prediction logs and answers the aggregate reads that the
// dashboard endpoints cache.
type Repository interface {
	Create(ctx context.Context, l *models.PredictionLog) (*models.PredictionLog, error)

	// FindRecent returns the id of a log of crop for userID written after
	// since, or common.ErrorNotFound.
	FindRecent(ctx context.Context, userID, crop string, since time.Time) (string, error)

	StatisticsForUser(ctx context.Context, userID string) (*models.UserPredictionStats, error)
	GlobalStats(ctx context.Context) (*models.GlobalStats, error)
}
