// Package auth mints and verifies bearer tokens, hashes passwords and
// validates credential input.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// Claims is the bearer token payload. SessionToken binds the token to a
// server-side session; the token is only honoured while that session lives.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	SessionToken string `json:"session_token"`
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	clock    clockwork.Clock
	logger   logging.Logger
}

func NewTokenIssuer(secret []byte, validity time.Duration, clock clockwork.Clock, logger logging.Logger) *TokenIssuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TokenIssuer{
		secret:   secret,
		validity: validity,
		clock:    clock,
		logger:   logger.With("module", "token_issuer"),
	}
}

// Issue mints a token for user bound to sessionToken, valid from now for the
// configured validity.
func (i *TokenIssuer) Issue(user *models.User, sessionToken string) (string, error) {
	now := i.clock.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		SessionToken: sessionToken,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. Every failure yields common.ErrInvalidToken; the concrete reason
// is only logged.
func (i *TokenIssuer) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		i.logger.Warn(ctx, "token rejected", "reason", rejectReason(err))
		return nil, common.ErrInvalidToken
	}

	if claims.UserID == "" || claims.SessionToken == "" {
		i.logger.Warn(ctx, "token rejected", "reason", "missing claims")
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return err.Error()
	}
}
