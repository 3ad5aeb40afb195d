// Package predictions stores prediction logs and their aggregates.
package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.PredictionLog) (*models.PredictionLog, error) {
	query :=
		`INSERT INTO prediction_logs (user_id, input_features, predicted_crop, confidence, processing_time,
		                              session_id, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id
		 `

	features, err := json.Marshal(l.Features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	sessionID := sql.NullString{String: l.SessionID, Valid: l.SessionID != ""}

	err = r.db.QueryRowContext(ctx, query,
		l.UserID, features, l.PredictedCrop, l.Confidence, l.ProcessingMS,
		sessionID, l.IPAddress, l.UserAgent, l.CreatedAt).Scan(&l.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return l, nil
}

func (r *PostgresRepository) FindRecent(ctx context.Context, userID, crop string, since time.Time) (string, error) {
	query :=
		`SELECT id FROM prediction_logs
		 WHERE user_id = $1 AND predicted_crop = $2 AND created_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1
		 `

	var id string
	if err := r.db.QueryRowContext(ctx, query, userID, crop, since).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) StatisticsForUser(ctx context.Context, userID string) (*models.UserPredictionStats, error) {
	query :=
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0), MIN(created_at), MAX(created_at)
		 FROM prediction_logs
		 WHERE user_id = $1
		 `

	st := &models.UserPredictionStats{UserID: userID}
	var first, last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&st.TotalPredictions, &st.AverageConfidence, &first, &last); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if first.Valid {
		st.FirstPredictionAt = &first.Time
	}
	if last.Valid {
		st.LastPredictionAt = &last.Time
	}

	dist, err := r.distribution(ctx,
		`SELECT predicted_crop, COUNT(*) FROM prediction_logs
		 WHERE user_id = $1
		 GROUP BY predicted_crop
		 ORDER BY COUNT(*) DESC, predicted_crop
		 `, userID)
	if err != nil {
		return nil, err
	}
	st.CropDistribution = dist

	return st, nil
}

func (r *PostgresRepository) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	query := `SELECT COUNT(*), COUNT(DISTINCT user_id) FROM prediction_logs`

	st := &models.GlobalStats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&st.TotalPredictions, &st.TotalUsers); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	dist, err := r.distribution(ctx,
		`SELECT predicted_crop, COUNT(*) FROM prediction_logs
		 GROUP BY predicted_crop
		 ORDER BY COUNT(*) DESC, predicted_crop
		 `)
	if err != nil {
		return nil, err
	}
	st.CropDistribution = dist

	return st, nil
}

func (r *PostgresRepository) distribution(ctx context.Context, query string, args ...any) ([]models.CropCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.CropCount, 0)
	for rows.Next() {
		var c models.CropCount
		if err := rows.Scan(&c.Crop, &c.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
