// Package gateway makes the per-request authorization decision: a bearer
// token must verify and its bound session must still be usable.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// SessionValidator resolves a session token to a usable session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.SessionView, error)
}

type Gateway struct {
	tokens   TokenVerifier
	sessions SessionValidator
	logger   logging.Logger
}

func New(tokens TokenVerifier, sessions SessionValidator, logger logging.Logger) *Gateway {
	return &Gateway{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger.With("module", "gateway"),
	}
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>"
// header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", common.ErrAuthorizationRequired
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, strings.TrimSpace(common.BearerPrefix)) || token == "" || strings.ContainsAny(token, " \t") {
		return "", common.ErrInvalidAuthHeaderFormat
	}
	return token, nil
}

// Resolve runs extraction, token verification and session validation and
// returns the caller's identity. Errors are the gateway sentinels of
// package common, one per failed stage.
func (g *Gateway) Resolve(ctx context.Context, header string) (*Identity, error) {
	raw, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(ctx, raw)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	sess, err := g.sessions.ValidateSession(ctx, claims.SessionToken)
	if err != nil {
		if !errors.Is(err, common.ErrInvalidSession) {
			g.logger.Error(ctx, "session validation failed", "error", err)
		}
		return nil, common.ErrInvalidSession
	}

	if sess.UserID != claims.UserID {
		g.logger.Warn(ctx, "session rejected", "reason", "owner_mismatch", "session_id", sess.ID)
		return nil, common.ErrInvalidSession
	}

	return &Identity{
		UserID:       claims.UserID,
		Username:     claims.Username,
		Email:        claims.Email,
		SessionID:    sess.ID,
		SessionToken: claims.SessionToken,
	}, nil
}

// Required resolves the identity or reports why the request must be
// rejected.
func (g *Gateway) Required(ctx context.Context, header string) (*Identity, error) {
	return g.Resolve(ctx, header)
}

// Optional resolves the identity when the whole chain is valid and returns
// nil otherwise.
func (g *Gateway) Optional(ctx context.Context, header string) *Identity {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	id, err := g.Resolve(ctx, header)
	if err != nil {
		g.logger.Debug(ctx, "optional auth ignored", "reason", err.Error())
		return nil
	}
	return id
}
