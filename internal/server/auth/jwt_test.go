package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &models.User{ID: "user-1", Username: "alice", Email: "a@x.com"}

func newIssuer(t *testing.T) (*TokenIssuer, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewTokenIssuer([]byte("test-secret"), 24*time.Hour, clock, nil), clock
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()
	issuer, clock := newIssuer(t)

	token, err := issuer.Issue(testUser, "sess-token")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "sess-token", claims.SessionToken)
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, clock.Now().Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_Expiry(t *testing.T) {
	t.Parallel()
	issuer, clock := newIssuer(t)

	token, err := issuer.Issue(testUser, "sess-token")
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Second)
	_, err = issuer.Verify(context.Background(), token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = issuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()
	issuer, clock := newIssuer(t)
	other := NewTokenIssuer([]byte("another-secret"), 24*time.Hour, clock, nil)

	token, err := other.Issue(testUser, "sess-token")
	require.NoError(t, err)

	_, err = issuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	issuer, clock := newIssuer(t)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour))},
		UserID:           "user-1",
		SessionToken:     "sess-token",
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for _, token := range []string{none, hs512, "garbage", ""} {
		_, err := issuer.Verify(context.Background(), token)
		assert.ErrorIs(t, err, common.ErrInvalidToken, token)
	}
}

func TestTokenIssuer_RequiresBindingClaims(t *testing.T) {
	t.Parallel()
	issuer, clock := newIssuer(t)

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return s
	}
	exp := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour))}

	cases := map[string]string{
		"no session":  sign(Claims{RegisteredClaims: exp, UserID: "user-1"}),
		"no user":     sign(Claims{RegisteredClaims: exp, SessionToken: "s"}),
		"no expiry":   sign(Claims{UserID: "user-1", SessionToken: "s"}),
		"valid token": sign(Claims{RegisteredClaims: exp, UserID: "user-1", SessionToken: "s"}),
	}
	for name, token := range cases {
		_, err := issuer.Verify(context.Background(), token)
		if name == "valid token" {
			assert.NoError(t, err, name)
			continue
		}
		assert.ErrorIs(t, err, common.ErrInvalidToken, name)
	}
}
