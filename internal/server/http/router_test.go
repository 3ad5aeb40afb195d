package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/cropauth/internal/cache"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router http.Handler
	clock  *clockwork.FakeClock
	rm     *repomanager.InMemoryRepositoryManager
	health error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = 4

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	logger := logging.NewNop()
	rm := repomanager.NewInMemoryRepositoryManager(nil)

	creds := services.NewCredentialService(nil, rm, auth.NewBcryptHasher(cfg.BcryptCost), cfg, clock, logger)
	sessions := services.NewSessionService(nil, rm, cfg, clock, logger)
	tokens := auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenValidity, clock, logger)
	users := services.NewUserService(nil, rm, creds, sessions, tokens, logger)
	predictions := services.NewPredictionService(nil, rm, cache.New(clock, logger), cfg, clock, logger)
	gw := gateway.New(tokens, sessions, logger)

	api := &testAPI{clock: clock, rm: rm}
	health := func(context.Context) error { return api.health }
	api.router = NewRouter(NewHandler(users, sessions, predictions, gw, health, clock, logger))
	return api
}

type response struct {
	code int
	body map[string]any
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	out := response{code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	}
	return out
}

func (a *testAPI) signup(t *testing.T, username, email string) (token, userID string) {
	t.Helper()
	res := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": username, "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.code, res.body)
	user := res.body["user"].(map[string]any)
	return res.body["token"].(string), user["id"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "healthy", res.body["status"])
	assert.Equal(t, "2024-06-01T08:00:00Z", res.body["timestamp"])

	api.health = errors.New("down")
	res = api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.code)
}

func TestSignup(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": "alice", "email": "A@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.code)
	assert.NotEmpty(t, res.body["token"])
	user := res.body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "passwordHash")

	res = api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": "alice", "email": "b@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Username or email already exists", res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": "bob", "email": "b@x.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, auth.MsgPasswordTooShort, res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{"username": "bob"})
	assert.Equal(t, auth.MsgSignupFieldsRequired, res.body["error"])
}

func TestSignup_RequiresJSON(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRequestJSON)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice", "a@x.com")

	res := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Username and password are required", res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid username or password", res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid username or password", res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, res.code)
	user := res.body["user"].(map[string]any)
	assert.Equal(t, "2024-06-01T08:00:00Z", user["lastLoginAt"])
}

func TestLockoutIsIndistinguishable(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice", "a@x.com")

	for i := 0; i < 5; i++ {
		api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "nope"})
	}
	res := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid username or password", res.body["error"])
}

func TestRequireAuthMessages(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, msgAuthorizationRequired, res.body["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidHeaderFormat)

	res = api.do(t, http.MethodGet, "/api/auth/verify", "not-a-jwt", nil)
	assert.Equal(t, msgInvalidToken, res.body["error"])
}

func TestVerifyLogoutRevokes(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.signup(t, "alice", "a@x.com")

	res := api.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, res.code)
	user := res.body["user"].(map[string]any)
	assert.Equal(t, userID, user["id"])

	res = api.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Logout successful", res.body["message"])

	res = api.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, msgInvalidSession, res.body["error"])
}

func TestResetPassword(t *testing.T) {
	api := newTestAPI(t)
	_, userID := api.signup(t, "alice", "a@x.com")

	for _, email := range []string{"a@x.com", "ghost@x.com"} {
		res := api.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]any{"email": email})
		assert.Equal(t, http.StatusOK, res.code)
		assert.Equal(t, "Password reset email sent if account exists", res.body["message"])
	}
	assert.Len(t, api.rm.Store().PasswordResets().Tokens(userID), 1)

	res := api.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]any{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, auth.MsgInvalidEmail, res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]any{})
	assert.Equal(t, "Email is required", res.body["error"])
}

func TestLogActivity(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.signup(t, "alice", "a@x.com")

	res := api.do(t, http.MethodPost, "/api/auth/log-activity", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Activity type is required", res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/log-activity", "", map[string]any{"activity": "page_view", "userId": "anon"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, msgUnknownUser, res.body["error"])

	res = api.do(t, http.MethodPost, "/api/auth/log-activity", "", map[string]any{"activity": "page_view"})
	assert.Equal(t, http.StatusOK, res.code)

	res = api.do(t, http.MethodPost, "/api/auth/log-activity", "", map[string]any{"activity": "page_view", "userId": userID})
	assert.Equal(t, http.StatusOK, res.code)

	res = api.do(t, http.MethodPost, "/api/auth/log-activity", token, map[string]any{
		"activity": "page_view", "userId": "spoofed", "details": map[string]any{"page": "/dashboard"},
	})
	require.Equal(t, http.StatusOK, res.code)

	acts := api.rm.Store().Activities().ForUser(userID)
	require.Len(t, acts, 3)
	assert.Equal(t, "page_view", acts[1].ActivityType)
	assert.Empty(t, acts[1].SessionID)
	assert.Equal(t, "page_view", acts[2].ActivityType)
	assert.Equal(t, "/dashboard", acts[2].Details["page"])
	assert.Equal(t, "203.0.113.7", acts[2].IPAddress)
	assert.NotEmpty(t, acts[2].SessionID)

	assert.Len(t, api.rm.Store().Activities().ForUser(""), 1)
	assert.Empty(t, api.rm.Store().Activities().ForUser("anon"))
	assert.Empty(t, api.rm.Store().Activities().ForUser("spoofed"))
}

func TestListSessions(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.signup(t, "alice", "a@x.com")
	_, otherID := api.signup(t, "bob", "b@x.com")

	res := api.do(t, http.MethodGet, "/api/auth/sessions/"+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, msgForbiddenUser, res.body["error"])

	api.clock.Advance(90 * time.Second)
	res = api.do(t, http.MethodGet, "/api/auth/sessions/"+userID, token, nil)
	require.Equal(t, http.StatusOK, res.code)

	list := res.body["sessions"].([]any)
	require.Len(t, list, 1)
	sess := list[0].(map[string]any)
	assert.Equal(t, 90.0, sess["durationSeconds"])
	assert.NotContains(t, sess, "sessionToken")
	assert.Len(t, sess["activities"], 1)
}

func TestClientInfo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("User-Agent", strings.Repeat("x", 600))

	info := clientInfo(req)
	assert.Equal(t, "192.0.2.1", info.IPAddress)
	assert.Len(t, info.UserAgent, 500)

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientInfo(req).IPAddress)

	req.RemoteAddr = "not-an-ip"
	assert.Empty(t, clientInfo(req).IPAddress)
}

func TestClientInfo_UserAgentCutOnCharacterBoundary(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.Header.Set("User-Agent", strings.Repeat("a", 499)+"é")
	ua := clientInfo(req).UserAgent
	assert.True(t, utf8.ValidString(ua))
	assert.Equal(t, 500, utf8.RuneCountInString(ua))
	assert.True(t, strings.HasSuffix(ua, "é"))

	req.Header.Set("User-Agent", strings.Repeat("é", 600))
	ua = clientInfo(req).UserAgent
	assert.True(t, utf8.ValidString(ua))
	assert.Equal(t, 500, utf8.RuneCountInString(ua))

	req.Header.Set("User-Agent", "agent\xff/1.0")
	assert.Equal(t, "agent\uFFFD/1.0", clientInfo(req).UserAgent)
}

func TestClientInfo_ForwardedForGoesThroughRealIP(t *testing.T) {
	api := newTestAPI(t)

	signup := func(username, forwarded string) string {
		b, err := json.Marshal(map[string]any{"username": username, "email": username + "@x.com", "password": "secret1"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var body struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		acts := api.rm.Store().Activities().ForUser(body.User.ID)
		require.Len(t, acts, 1)
		return acts[0].IPAddress
	}

	assert.Equal(t, "198.51.100.2", signup("alice", "198.51.100.2, 10.0.0.1"))

	// httptest.NewRequest sets RemoteAddr to 192.0.2.1:1234
	assert.Equal(t, "192.0.2.1", signup("bob", strings.Repeat("z", 100)+", 10.0.0.1"))
}

func TestNotFound(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Not found", res.body["error"])
}
