package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Registration conflicts, distinguished so the caller knows which field collided
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")

	// Account state errors
	ErrAccountInactive = errors.New("account is deactivated")
	ErrAccountLocked   = errors.New("account is temporarily locked")

	// Token errors: every internal cause (malformed, expired, wrong type,
	// bad signature) collapses to this single value at the engine boundary
	ErrInvalidToken = errors.New("invalid or expired token")

	// The ephemeral cache is down and the operation cannot proceed without it
	ErrCacheUnavailable = errors.New("service temporarily unavailable")
)
