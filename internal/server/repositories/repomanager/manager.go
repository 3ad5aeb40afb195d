package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cropauth/internal/dbx"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/activities"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/cropauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB or Tx handle, runs
// schema migrations and scopes units of work.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Ping(ctx context.Context, db *sql.DB) error
	WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Activities(db dbx.DBTX) activities.Repository
	PasswordResets(db dbx.DBTX) passwordresets.Repository
	Predictions(db dbx.DBTX) predictions.Repository
}
