package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/cache"
	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/auth"
	"github.com/dmitrijs2005/cropauth/internal/server/config"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/users"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var client = models.ClientInfo{IPAddress: "10.0.0.1", UserAgent: "test-agent"}

type fixture struct {
	clock       *clockwork.FakeClock
	store       *memory.Store
	cfg         *config.Config
	cache       *cache.Cache
	credentials *CredentialService
	sessions    *SessionService
	tokens      *auth.TokenIssuer
	users       *UserService
	predictions *PredictionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repomanager.NewInMemoryRepositoryManager(nil))
}

func newFixtureWith(t *testing.T, rm repomanager.RepositoryManager) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = 4

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	logger := logging.NewNop()

	f := &fixture{clock: clock, cfg: cfg}
	if mem, ok := rm.(*repomanager.InMemoryRepositoryManager); ok {
		f.store = mem.Store()
	}

	f.cache = cache.New(clock, logger)
	f.credentials = NewCredentialService(nil, rm, auth.NewBcryptHasher(cfg.BcryptCost), cfg, clock, logger)
	f.sessions = NewSessionService(nil, rm, cfg, clock, logger)
	f.tokens = auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenValidity, clock, logger)
	f.users = NewUserService(nil, rm, f.credentials, f.sessions, f.tokens, logger)
	f.predictions = NewPredictionService(nil, rm, f.cache, cfg, clock, logger)
	return f
}

func (f *fixture) signup(t *testing.T, username, email, password string) *AuthResult {
	t.Helper()
	res, err := f.users.Signup(context.Background(), username, email, password, client)
	require.NoError(t, err)
	return res
}

// failingUsers makes every read of the users table fail.
type failingUsers struct {
	users.Repository
	err error
}

func (f *failingUsers) GetActiveByUsername(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func (f *failingUsers) GetActiveByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}

type failingUsersManager struct {
	*repomanager.InMemoryRepositoryManager
	err error
}

func (m *failingUsersManager) Users(db dbx.DBTX) users.Repository {
	return &failingUsers{Repository: m.InMemoryRepositoryManager.Users(db), err: m.err}
}
