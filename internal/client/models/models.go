// Package models holds the client-side shapes of the cropauth HTTP API
// responses.
package models

import "time"

type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	SessionStartedAt time.Time  `json:"sessionStartedAt"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Activity struct {
	ID           string         `json:"id"`
	ActivityType string         `json:"activityType"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	CreatedAt    time.Time      `json:"timestamp"`
}

type Session struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	IPAddress      string      `json:"ipAddress"`
	UserAgent      string      `json:"userAgent"`
	CreatedAt      time.Time   `json:"createdAt"`
	ExpiresAt      time.Time   `json:"expiresAt"`
	LastActivityAt time.Time   `json:"lastActivity"`
	IsActive       bool        `json:"isActive"`
	EndedAt        *time.Time  `json:"endedAt,omitempty"`
	LogoutReason   string      `json:"logoutReason,omitempty"`
	DurationSecs   float64     `json:"durationSeconds"`
	Activities     []*Activity `json:"activities"`
}
