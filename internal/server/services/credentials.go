package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/jonboulle/clockwork"
)

// CredentialService owns user records and the authentication decision,
// including the failed-login lockout.
type CredentialService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	hasher           auth.PasswordHasher
	clock            clockwork.Clock
	logger           logging.Logger
	lockoutThreshold int
	lockoutDuration  time.Duration
	resetValidity    time.Duration
	storeTimeout     time.Duration
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher,
	cfg *config.Config, clock clockwork.Clock, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:               db,
		repomanager:      m,
		hasher:           hasher,
		clock:            clock,
		logger:           logger.With("module", "credentials"),
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutDuration:  cfg.LockoutDuration,
		resetValidity:    cfg.ResetTokenValidity,
		storeTimeout:     cfg.StoreTimeout,
	}
}

// CreateUser validates and stores a new account. An existing username or
// email yields common.ErrorAlreadyExists.
func (s *CredentialService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	user, err := s.prepareUser(username, email, password)
	if err != nil {
		return nil, err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.insertUser(ctx, s.db, user)
}

// prepareUser normalizes and validates signup input and hashes the password.
// It does not touch the store, so it can run before a transaction starts.
func (s *CredentialService) prepareUser(username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = auth.NormalizeEmail(email)

	if err := auth.ValidateSignup(username, email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	return &models.User{Username: username, Email: email, PasswordHash: hash, CreatedAt: s.clock.Now()}, nil
}

func (s *CredentialService) insertUser(ctx context.Context, db dbx.DBTX, user *models.User) (*models.User, error) {
	repo := s.repomanager.Users(db)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, user.Username, user.Email)
	if err != nil {
		return nil, storeError(err)
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID)
	return created.Public(), nil
}

// Authenticate checks username and password. Every failure, including a
// locked account or an unreachable store, is reported as
// common.ErrorUnauthorized; the cause is only logged.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, _, err := s.authenticate(ctx, username, password)
	return user, err
}

// authenticate also returns the id of the account the attempt was made
// against, when one exists, so callers can audit failed attempts.
func (s *CredentialService) authenticate(ctx context.Context, username, password string) (*models.User, string, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	repo := s.repomanager.Users(s.db)
	username = strings.TrimSpace(username)

	user, err := repo.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burn(password)
			s.logger.Warn(ctx, "login rejected", "reason", "unknown_user")
			return nil, "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login rejected", "reason", "store_unavailable", "error", err)
		return nil, "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, storeError(err))
	}

	now := s.clock.Now()
	log := s.logger.With("user_id", user.ID)

	if user.IsLocked(now) {
		log.Warn(ctx, "login rejected", "reason", "locked")
		return nil, user.ID, common.ErrorUnauthorized
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, log, user.ID, now)
		return nil, user.ID, common.ErrorUnauthorized
	}

	if err := repo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		log.Error(ctx, "login rejected", "reason", "store_unavailable", "error", err)
		return nil, user.ID, fmt.Errorf("%w: %w", common.ErrorUnauthorized, storeError(err))
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	log.Info(ctx, "login succeeded")
	return user.Public(), user.ID, nil
}

func (s *CredentialService) recordFailure(ctx context.Context, log logging.Logger, userID string, now time.Time) {
	failure, err := s.repomanager.Users(s.db).RecordLoginFailure(ctx, userID, s.lockoutThreshold, now, now.Add(s.lockoutDuration))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		// Locked by a concurrent attempt.
		log.Warn(ctx, "login rejected", "reason", "locked")
	case err != nil:
		log.Error(ctx, "login rejected", "reason", "bad_password", "error", err)
	default:
		log.Warn(ctx, "login rejected", "reason", "bad_password",
			"failed_attempts", failure.FailedLoginAttempts,
			"locked", failure.LockedUntil != nil && failure.LockedUntil.After(now))
	}
}

func (s *CredentialService) burn(password string) {
	if b, ok := s.hasher.(interface{ Burn(string) }); ok {
		b.Burn(password)
	}
}

// RequestPasswordReset stores a reset token for the active account with
// email and returns it. An unknown email returns an empty token and no
// error so callers can answer uniformly.
func (s *CredentialService) RequestPasswordReset(ctx context.Context, email string, client models.ClientInfo) (*models.PasswordResetToken, error) {
	email = auth.NormalizeEmail(email)
	if err := auth.Required("Email", email); err != nil {
		return nil, err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetActiveByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Info(ctx, "password reset for unknown email")
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}

	token, err := common.MakeURLSafeToken(32)
	if err != nil {
		return nil, fmt.Errorf("%w: reset token: %v", common.ErrorInternal, err)
	}

	now := s.clock.Now()
	created, err := s.repomanager.PasswordResets(s.db).Create(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.resetValidity),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: now,
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info(ctx, "password reset token created", "user_id", user.ID)
	return created, nil
}
