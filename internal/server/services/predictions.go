package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/cache"
	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/jonboulle/clockwork"
)

// DuplicateWindow is how long an identical crop recommendation for the same
// user is treated as a resubmission of the previous log.
const DuplicateWindow = 3 * time.Second

const (
	userStatsKey   = "prediction-statistics"
	globalStatsKey = "global-stats"
)

// PredictionService stores prediction logs and serves the cached statistics
// built from them.
type PredictionService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	cache        *cache.Cache
	userStats    *cache.Namespace[*models.UserPredictionStats]
	globalStats  *cache.Namespace[*models.GlobalStats]
	clock        clockwork.Clock
	logger       logging.Logger
	storeTimeout time.Duration
}

func NewPredictionService(db *sql.DB, m repomanager.RepositoryManager, c *cache.Cache, cfg *config.Config,
	clock clockwork.Clock, logger logging.Logger) *PredictionService {
	return &PredictionService{
		db:           db,
		repomanager:  m,
		cache:        c,
		userStats:    cache.NewNamespace[*models.UserPredictionStats](c, "user-stats", cfg.UserCacheTTL),
		globalStats:  cache.NewNamespace[*models.GlobalStats](c, "global-stats", cfg.SharedCacheTTL),
		clock:        clock,
		logger:       logger.With("module", "predictions"),
		storeTimeout: cfg.StoreTimeout,
	}
}

// RecordResult reports the stored log id and whether the log was a
// resubmission of a recent one.
type RecordResult struct {
	ID        string
	Duplicate bool
}

// Record validates and stores l, then drops every cached read of its owner.
func (s *PredictionService) Record(ctx context.Context, l *models.PredictionLog) (*RecordResult, error) {
	if err := validatePrediction(l); err != nil {
		return nil, err
	}

	storeCtx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	repo := s.repomanager.Predictions(s.db)
	now := s.clock.Now()

	id, err := repo.FindRecent(storeCtx, l.UserID, l.PredictedCrop, now.Add(-DuplicateWindow))
	if err == nil {
		s.logger.Warn(ctx, "duplicate prediction skipped", "user_id", l.UserID, "crop", l.PredictedCrop)
		return &RecordResult{ID: id, Duplicate: true}, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, storeError(err)
	}

	l.CreatedAt = now
	created, err := repo.Create(storeCtx, l)
	if err != nil {
		return nil, storeError(err)
	}

	s.cache.InvalidateForOwner(ctx, l.UserID)
	s.logger.Info(ctx, "prediction logged", "user_id", l.UserID, "log_id", created.ID)

	return &RecordResult{ID: created.ID}, nil
}

func validatePrediction(l *models.PredictionLog) error {
	if l.UserID == "" {
		return fmt.Errorf("%w: Missing required field: userId", common.ErrorValidation)
	}
	l.PredictedCrop = strings.TrimSpace(l.PredictedCrop)
	if l.PredictedCrop == "" {
		return fmt.Errorf("%w: Missing predicted_crop in prediction", common.ErrorValidation)
	}
	if math.IsNaN(l.Confidence) || l.Confidence < 0 || l.Confidence > 1 {
		return fmt.Errorf("%w: Confidence must be between 0 and 1", common.ErrorValidation)
	}
	f := l.Features
	for _, v := range []float64{f.N, f.P, f.K, f.Temperature, f.Humidity, f.PH, f.Rainfall} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: invalid input feature", common.ErrorValidation)
		}
	}
	return nil
}

// UserStatistics returns userID's prediction summary, cached per user.
func (s *PredictionService) UserStatistics(ctx context.Context, userID string) (*models.UserPredictionStats, error) {
	return cache.GetOrCompute(ctx, s.userStats, cache.Owned(userID, userStatsKey),
		func(ctx context.Context) (*models.UserPredictionStats, error) {
			ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
			defer cancel()

			st, err := s.repomanager.Predictions(s.db).StatisticsForUser(ctx, userID)
			return st, storeError(err)
		})
}

// GlobalStats returns the summary across all users, cached as shared data.
func (s *PredictionService) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	return cache.GetOrCompute(ctx, s.globalStats, cache.Shared(globalStatsKey),
		func(ctx context.Context) (*models.GlobalStats, error) {
			ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
			defer cancel()

			st, err := s.repomanager.Predictions(s.db).GlobalStats(ctx)
			return st, storeError(err)
		})
}

// ClearUserCache drops every cached read owned by userID.
func (s *PredictionService) ClearUserCache(ctx context.Context, userID string) int {
	return s.cache.InvalidateForOwner(ctx, userID)
}

// ClearAll empties the cache.
func (s *PredictionService) ClearAll(ctx context.Context) int {
	return s.cache.Clear(ctx)
}

// CacheStats exposes the cache counters.
func (s *PredictionService) CacheStats() cache.Stats {
	return s.cache.Stats()
}
