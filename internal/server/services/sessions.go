package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/jonboulle/clockwork"
)

// SessionHistoryLimit caps how many sessions ListSessions returns.
const SessionHistoryLimit = 50

const sessionTokenBytes = 32

// SessionService manages login sessions and their activity log.
type SessionService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	clock        clockwork.Clock
	logger       logging.Logger
	validity     time.Duration
	storeTimeout time.Duration
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	clock clockwork.Clock, logger logging.Logger) *SessionService {
	return &SessionService{
		db:           db,
		repomanager:  m,
		clock:        clock,
		logger:       logger.With("module", "sessions"),
		validity:     cfg.SessionValidity,
		storeTimeout: cfg.StoreTimeout,
	}
}

// CreateSession starts a session for userID. The returned session carries
// the opaque token clients present as their revocation handle.
func (s *SessionService) CreateSession(ctx context.Context, userID string, client models.ClientInfo) (*models.Session, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.createSession(ctx, s.db, userID, client)
}

func (s *SessionService) createSession(ctx context.Context, db dbx.DBTX, userID string, client models.ClientInfo) (*models.Session, error) {
	token, err := common.MakeURLSafeToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: session token: %v", common.ErrorInternal, err)
	}

	now := s.clock.Now()
	sess, err := s.repomanager.Sessions(db).Create(ctx, &models.Session{
		UserID:         userID,
		SessionToken:   token,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.validity),
		LastActivityAt: now,
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info(ctx, "session created", "user_id", userID, "session_id", sess.ID)
	return sess, nil
}

// ValidateSession resolves token to a usable session and refreshes its last
// activity. Unknown, ended and expired sessions yield
// common.ErrInvalidSession, as does an unreachable store.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (*models.SessionView, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	repo := s.repomanager.Sessions(s.db)

	view, err := repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "session rejected", "reason", "unknown")
			return nil, common.ErrInvalidSession
		}
		s.logger.Error(ctx, "session rejected", "reason", "store_unavailable", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidSession, storeError(err))
	}

	now := s.clock.Now()
	switch {
	case !view.IsActive:
		s.logger.Warn(ctx, "session rejected", "reason", "ended", "session_id", view.ID)
		return nil, common.ErrInvalidSession
	case !view.ExpiresAt.After(now):
		s.logger.Warn(ctx, "session rejected", "reason", "expired", "session_id", view.ID)
		return nil, common.ErrInvalidSession
	}

	if err := repo.Touch(ctx, token, now); err != nil {
		s.logger.Warn(ctx, "session activity refresh failed", "session_id", view.ID, "error", err)
	} else {
		view.LastActivityAt = now
	}

	return view, nil
}

// EndSession deactivates the session. Ending an ended or unknown session
// succeeds and changes nothing.
func (s *SessionService) EndSession(ctx context.Context, token, reason string) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ended, err := s.repomanager.Sessions(s.db).End(ctx, token, reason, s.clock.Now())
	if err != nil {
		return storeError(err)
	}
	if ended {
		s.logger.Info(ctx, "session ended", "reason", reason)
	}
	return nil
}

// ListSessions returns the session history of userID, newest first, each
// with its duration and activity log.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]*models.SessionView, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	list, err := s.repomanager.Sessions(s.db).ListByUser(ctx, userID, SessionHistoryLimit)
	if err != nil {
		return nil, storeError(err)
	}

	activityRepo := s.repomanager.Activities(s.db)
	now := s.clock.Now()

	for _, v := range list {
		end := now
		if v.EndedAt != nil {
			end = *v.EndedAt
		}
		v.DurationSecs = end.Sub(v.CreatedAt).Seconds()

		acts, err := activityRepo.ListBySession(ctx, v.ID)
		if err != nil {
			return nil, storeError(err)
		}
		if acts == nil {
			acts = []*models.Activity{}
		}
		v.Activities = acts
	}

	if list == nil {
		list = []*models.SessionView{}
	}
	return list, nil
}

// LogActivity appends a to the activity log, stamping its time.
func (s *SessionService) LogActivity(ctx context.Context, a *models.Activity) error {
	if a.ActivityType == "" {
		return fmt.Errorf("%w: activity type is required", common.ErrorValidation)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	a.CreatedAt = s.clock.Now()
	if err := s.repomanager.Activities(s.db).Create(ctx, a); err != nil {
		return storeError(err)
	}
	return nil
}

// recordActivity is LogActivity for audit writes that must not fail the
// surrounding operation.
func (s *SessionService) recordActivity(ctx context.Context, a *models.Activity) {
	if err := s.LogActivity(ctx, a); err != nil {
		s.logger.Warn(ctx, "activity not recorded", "activity", a.ActivityType, "error", err)
	}
}
