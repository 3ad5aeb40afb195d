// Package sessions stores login sessions in the user_sessions table.
package sessions

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	query :=
		`INSERT INTO user_sessions (user_id, session_token, ip_address, user_agent, created_at, expires_at, last_activity_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $5, true)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		s.UserID, s.SessionToken, s.IPAddress, s.UserAgent, s.CreatedAt, s.ExpiresAt).Scan(&s.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.LastActivityAt = s.CreatedAt
	s.IsActive = true
	return s, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.SessionView, error) {
	query :=
		`SELECT us.id, us.user_id, u.username, u.email, us.session_token, us.ip_address, us.user_agent,
		        us.created_at, us.expires_at, us.last_activity_at, us.is_active, us.ended_at, us.logout_reason
		 FROM user_sessions us
		 JOIN users u ON u.id = us.user_id
		 WHERE us.session_token = $1
		 `

	v := &models.SessionView{}
	var (
		ip, ua, reason sql.NullString
		ended          sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&v.ID, &v.UserID, &v.Username, &v.Email, &v.SessionToken, &ip, &ua,
		&v.CreatedAt, &v.ExpiresAt, &v.LastActivityAt, &v.IsActive, &ended, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	v.IPAddress, v.UserAgent, v.LogoutReason = ip.String, ua.String, reason.String
	if ended.Valid {
		t := ended.Time
		v.EndedAt = &t
	}
	return v, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, token string, at time.Time) error {
	query := `UPDATE user_sessions SET last_activity_at = $2 WHERE session_token = $1`

	if _, err := r.db.ExecContext(ctx, query, token, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) End(ctx context.Context, token, reason string, at time.Time) (bool, error) {
	query :=
		`UPDATE user_sessions
		 SET is_active = false, ended_at = $3, logout_reason = $2
		 WHERE session_token = $1 AND is_active = true
		 `

	res, err := r.db.ExecContext(ctx, query, token, reason, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.SessionView, error) {
	query :=
		`SELECT id, user_id, ip_address, user_agent, created_at, expires_at, last_activity_at,
		        is_active, ended_at, logout_reason
		 FROM user_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SessionView
	for rows.Next() {
		v := &models.SessionView{}
		var (
			ip, ua, reason sql.NullString
			ended          sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.UserID, &ip, &ua, &v.CreatedAt, &v.ExpiresAt,
			&v.LastActivityAt, &v.IsActive, &ended, &reason); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		v.IPAddress, v.UserAgent, v.LogoutReason = ip.String, ua.String, reason.String
		if ended.Valid {
			t := ended.Time
			v.EndedAt = &t
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
