package models

import (
	"time"
)

type User struct {
	ID                  string
	Email               string
	Username            string
	PasswordHash        string
	Bio                 string
	GenreTags           string // Comma-separated tags
	IsActive            bool
	IsAdmin             bool
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time // Temporary account lock expiration
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserProfileUpdate carries a partial profile update. Nil fields are not touched.
type UserProfileUpdate struct {
	Bio       *string
	GenreTags *string
}

// Locked reports whether the account is currently inside a lockout window.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
