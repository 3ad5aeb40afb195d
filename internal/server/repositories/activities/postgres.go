// Package activities stores the session activity log.
package activities

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, a *models.Activity) error {
	query :=
		`INSERT INTO session_activities (user_id, session_id, activity_type, details, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		nullable(a.UserID), nullable(a.SessionID), a.ActivityType, details, a.IPAddress, a.UserAgent, a.CreatedAt).
		Scan(&a.ID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown user or session", common.ErrorValidation)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Activity, error) {
	query :=
		`SELECT id, user_id, session_id, activity_type, details, ip_address, user_agent, created_at
		 FROM session_activities
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Activity, 0)
	for rows.Next() {
		a := &models.Activity{}
		var (
			userID, sessID, ip, ua sql.NullString
			details                []byte
		)
		if err := rows.Scan(&a.ID, &userID, &sessID, &a.ActivityType, &details, &ip, &ua, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		a.UserID, a.SessionID, a.IPAddress, a.UserAgent = userID.String, sessID.String, ip.String, ua.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// nullable maps "" to SQL NULL for optional foreign keys.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
