// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account row. PasswordHash is empty on values handed out of the
// credential layer.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	IsActive            bool       `json:"isActive"`
	LastLoginAt         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// IsLocked reports whether the lockout window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Public returns a copy without credential material.
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}

// LoginFailure is the lockout state after a failed attempt was recorded.
type LoginFailure struct {
	FailedLoginAttempts int
	LockedUntil         *time.Time
}
