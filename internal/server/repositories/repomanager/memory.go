package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/activities"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves every repository from one memory.Store.
// The DB handles passed to it are ignored and may be nil.
type InMemoryRepositoryManager struct {
	store *memory.Store
}

func NewInMemoryRepositoryManager(store *memory.Store) *InMemoryRepositoryManager {
	if store == nil {
		store = memory.NewStore()
	}
	return &InMemoryRepositoryManager{store: store}
}

// Store exposes the backing store, mainly for tests.
func (m *InMemoryRepositoryManager) Store() *memory.Store { return m.store }

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Ping(context.Context, *sql.DB) error { return nil }

// WithTx runs fn directly; the memory store has no rollback.
func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, _ *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.store.Users() }

func (m *InMemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository {
	return m.store.Sessions()
}

func (m *InMemoryRepositoryManager) Activities(dbx.DBTX) activities.Repository {
	return m.store.Activities()
}

func (m *InMemoryRepositoryManager) PasswordResets(dbx.DBTX) passwordresets.Repository {
	return m.store.PasswordResets()
}

func (m *InMemoryRepositoryManager) Predictions(dbx.DBTX) predictions.Repository {
	return m.store.Predictions()
}
