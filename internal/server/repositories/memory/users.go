package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/google/uuid"
)

type Users struct{ s *Store }

func copyUser(u *models.User) *models.User {
	c := *u
	c.LockedUntil = copyTime(u.LockedUntil)
	c.LastLoginAt = copyTime(u.LastLoginAt)
	return &c
}

func (r *Users) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}

	user.ID = uuid.NewString()
	user.IsActive = true
	r.s.users[user.ID] = copyUser(user)
	return user, nil
}

func (r *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *Users) GetActiveByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.IsActive && u.Username == username })
}

func (r *Users) GetActiveByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.IsActive && u.Email == email })
}

func (r *Users) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	_, err := r.find(func(u *models.User) bool { return u.Username == username || u.Email == email })
	if err == common.ErrorNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *Users) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	return nil
}

func (r *Users) RecordLoginFailure(_ context.Context, id string, threshold int, now, lockUntil time.Time) (*models.LoginFailure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.IsLocked(now) {
		return nil, common.ErrorNotFound
	}

	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		u.LockedUntil = &lockUntil
	}
	return &models.LoginFailure{
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         copyTime(u.LockedUntil),
	}, nil
}

func (r *Users) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}
