package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.credentials.CreateUser(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	a, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)
	b, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionToken, b.SessionToken)
	assert.GreaterOrEqual(t, len(a.SessionToken), 43)
	assert.True(t, a.IsActive)
	assert.True(t, a.ExpiresAt.Equal(f.clock.Now().Add(24*time.Hour)))
	assert.Equal(t, "test-agent", a.UserAgent)
}

func TestValidateSession_RefreshesActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.credentials.CreateUser(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	sess, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	view, err := f.sessions.ValidateSession(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, view.ID)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, "a@x.com", view.Email)
	assert.True(t, view.LastActivityAt.Equal(f.clock.Now()))

	stored, err := f.store.Sessions().GetByToken(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.True(t, stored.LastActivityAt.Equal(f.clock.Now()))
}

func TestValidateSession_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.credentials.CreateUser(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.sessions.ValidateSession(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidSession)

	expiring, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	_, err = f.sessions.ValidateSession(ctx, expiring.SessionToken)
	assert.ErrorIs(t, err, common.ErrInvalidSession, "expires_at == now is expired")

	ended, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)
	require.NoError(t, f.sessions.EndSession(ctx, ended.SessionToken, common.LogoutReasonUser))
	_, err = f.sessions.ValidateSession(ctx, ended.SessionToken)
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestEndSession_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.credentials.CreateUser(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	sess, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)

	require.NoError(t, f.sessions.EndSession(ctx, sess.SessionToken, common.LogoutReasonUser))
	first, err := f.store.Sessions().GetByToken(ctx, sess.SessionToken)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sessions.EndSession(ctx, sess.SessionToken, common.LogoutReasonRevoked))
	second, err := f.store.Sessions().GetByToken(ctx, sess.SessionToken)
	require.NoError(t, err)

	assert.False(t, second.IsActive)
	assert.Equal(t, common.LogoutReasonUser, second.LogoutReason)
	assert.True(t, first.EndedAt.Equal(*second.EndedAt))

	assert.NoError(t, f.sessions.EndSession(ctx, "never-existed", common.LogoutReasonUser))
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.credentials.CreateUser(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	older, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)
	require.NoError(t, f.sessions.LogActivity(ctx, &models.Activity{UserID: u.ID, SessionID: older.ID, ActivityType: "login"}))

	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.sessions.EndSession(ctx, older.SessionToken, common.LogoutReasonUser))

	f.clock.Advance(time.Minute)
	newer, err := f.sessions.CreateSession(ctx, u.ID, client)
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)

	list, err := f.sessions.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, 30.0, list[0].DurationSecs)
	assert.Empty(t, list[0].Activities)
	assert.NotNil(t, list[0].Activities)

	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 600.0, list[1].DurationSecs)
	require.Len(t, list[1].Activities, 1)
	assert.Equal(t, "login", list[1].Activities[0].ActivityType)

	empty, err := f.sessions.ListSessions(ctx, "someone-else")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLogActivity_RequiresType(t *testing.T) {
	f := newFixture(t)

	err := f.sessions.LogActivity(context.Background(), &models.Activity{UserID: "u"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestStoreError_Classification(t *testing.T) {
	assert.NoError(t, storeError(nil))
	assert.Same(t, common.ErrorNotFound, storeError(common.ErrorNotFound))

	unknown := fmt.Errorf("%w: unknown user or session", common.ErrorValidation)
	got := storeError(unknown)
	assert.ErrorIs(t, got, common.ErrorValidation)
	assert.NotErrorIs(t, got, common.ErrorStoreUnavailable)

	got = storeError(errors.New("db error: connection refused"))
	assert.ErrorIs(t, got, common.ErrorStoreUnavailable)
}
