package models

import (
	"time"
)

// Session is the durable record of one login's refresh-token lineage.
// Only the SHA-256 hash of the refresh token is stored, never the raw token.
type Session struct {
	ID           string
	UserID       string
	TokenHash    string
	IPAddress    string
	UserAgent    string
	DeviceInfo   string
	IsActive     bool
	LastActivity time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
