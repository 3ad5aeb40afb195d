// Package memory implements every repository over a single mutex-guarded
// in-process store. It backs the memory:// DSN and service tests; nothing is
// persisted and transactions are not isolated.
package memory

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/server/models"
)

// Store holds all tables. Values are copied on the way in and out so
// callers never alias stored rows.
type Store struct {
	mu sync.Mutex

	users       map[string]*models.User
	sessions    map[string]*models.Session // by token
	activities  []*models.Activity
	resets      []*models.PasswordResetToken
	predictions []*models.PredictionLog
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.Session),
	}
}

func (s *Store) Users() *Users                   { return &Users{s: s} }
func (s *Store) Sessions() *Sessions             { return &Sessions{s: s} }
func (s *Store) Activities() *Activities         { return &Activities{s: s} }
func (s *Store) PasswordResets() *PasswordResets { return &PasswordResets{s: s} }
func (s *Store) Predictions() *Predictions       { return &Predictions{s: s} }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
