package models

import "time"

// Session is one authenticated login. It is never deleted, only ended.
type Session struct {
	ID             string
	UserID         string
	SessionToken   string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
	IsActive       bool
	EndedAt        *time.Time
	LogoutReason   string
}

// Usable reports whether the session may authorize a request at now.
func (s *Session) Usable(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// SessionView is a session joined with its owner and, for listings, its
// duration and activity log.
type SessionView struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Username       string      `json:"username,omitempty"`
	Email          string      `json:"email,omitempty"`
	SessionToken   string      `json:"-"`
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

// Activity is an append-only audit record attached to a session.
type Activity struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	ActivityType string         `json:"activityType"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	CreatedAt    time.Time      `json:"timestamp"`
}

// PasswordResetToken is a one-time reset credential. Holding one grants
// nothing by itself.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// ClientInfo identifies the client a request came from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
