package models

import (
	"time"
)

// Audit actions
const (
	AuditActionLogin           = "login"
	AuditActionLoginAttempt    = "login_attempt"
	AuditActionLogout          = "logout"
	AuditActionPasswordChange  = "password_change"
	AuditActionPasswordReset   = "password_reset"
	AuditActionEmailVerified   = "email_verified"
	AuditActionUserRegistered  = "user_registered"
	AuditActionAccountDeletion = "account_deletion"
	AuditActionAccountDeleted  = "account_deleted"
	AuditActionProfileUpdated  = "profile_updated"
)

// Audit statuses
const (
	AuditStatusSuccess = "success"
	AuditStatusFailed  = "failed"
	AuditStatusError   = "error"
)

// AuditLog is an append-only record of a security-relevant event.
// UserID is nil for system events and for events about accounts that no
// longer exist (failed login with unknown email, completed deletion).
type AuditLog struct {
	ID        string
	UserID    *string
	Action    string
	Status    string
	IPAddress string
	UserAgent string
	Details   string
	CreatedAt time.Time
}
