package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
)

// AuthResult is what a client receives after signup or login.
type AuthResult struct {
	Token   string
	User    *models.User
	Session *models.Session
}

// UserService composes credentials, sessions and tokens into the signup,
// login and logout flows.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	credentials *CredentialService
	sessions    *SessionService
	tokens      *auth.TokenIssuer
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, credentials *CredentialService,
	sessions *SessionService, tokens *auth.TokenIssuer, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		credentials: credentials,
		sessions:    sessions,
		tokens:      tokens,
		logger:      logger.With("module", "users"),
	}
}

// Signup creates the account and its first session in one unit of work and
// returns a bearer token bound to that session.
func (s *UserService) Signup(ctx context.Context, username, email, password string, client models.ClientInfo) (*AuthResult, error) {
	prepared, err := s.credentials.prepareUser(username, email, password)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := dbx.WithTimeout(ctx, s.credentials.storeTimeout)
	defer cancel()

	var (
		user *models.User
		sess *models.Session
	)
	err = s.repomanager.WithTx(txCtx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if user, err = s.credentials.insertUser(ctx, tx, prepared); err != nil {
			return err
		}
		if sess, err = s.sessions.createSession(ctx, tx, user.ID, client); err != nil {
			return fmt.Errorf("%w: %w", ErrSessionCreation, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, user, sess, common.ActivitySignup, client)
}

// Login authenticates and opens a new session. Failed attempts against an
// existing account are recorded in its activity log.
func (s *UserService) Login(ctx context.Context, username, password string, client models.ClientInfo) (*AuthResult, error) {
	user, userID, err := s.credentials.authenticate(ctx, username, password)
	if err != nil {
		if userID != "" {
			s.sessions.recordActivity(ctx, &models.Activity{
				UserID:       userID,
				ActivityType: common.ActivityLoginFailed,
				Details:      map[string]any{"username": username, "reason": "invalid_credentials"},
				IPAddress:    client.IPAddress,
				UserAgent:    client.UserAgent,
			})
		}
		return nil, err
	}

	sess, err := s.sessions.CreateSession(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreation, err)
	}

	return s.finish(ctx, user, sess, common.ActivityLogin, client)
}

func (s *UserService) finish(ctx context.Context, user *models.User, sess *models.Session, activity string, client models.ClientInfo) (*AuthResult, error) {
	token, err := s.tokens.Issue(user, sess.SessionToken)
	if err != nil {
		s.logger.Error(ctx, "token not issued", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.sessions.recordActivity(ctx, &models.Activity{
		UserID:       user.ID,
		SessionID:    sess.ID,
		ActivityType: activity,
		Details:      map[string]any{"username": user.Username},
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	})

	return &AuthResult{Token: token, User: user, Session: sess}, nil
}

// Logout ends the caller's session and records it. Repeated logouts succeed.
func (s *UserService) Logout(ctx context.Context, userID, sessionID, sessionToken string, client models.ClientInfo) error {
	if err := s.sessions.EndSession(ctx, sessionToken, common.LogoutReasonUser); err != nil {
		return err
	}

	s.sessions.recordActivity(ctx, &models.Activity{
		UserID:       userID,
		SessionID:    sessionID,
		ActivityType: common.ActivityLogout,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	})
	return nil
}

// RequestPasswordReset issues a reset token when email belongs to an active
// account and records the request. The outcome is not revealed.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string, client models.ClientInfo) error {
	token, err := s.credentials.RequestPasswordReset(ctx, email, client)
	if err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		s.logger.Error(ctx, "password reset failed", "error", err)
		return nil
	}
	if token == nil {
		return nil
	}

	s.sessions.recordActivity(ctx, &models.Activity{
		UserID:       token.UserID,
		ActivityType: common.ActivityPasswordResetRequest,
		Details:      map[string]any{"email": auth.NormalizeEmail(email)},
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	})
	return nil
}
