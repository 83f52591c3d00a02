package services

import (
	"fmt"
	"time"

	"github.com/inknechoes/backend/internal/models"
)

// BadCredentialsError is returned for an unknown email or a wrong password.
// The base message is identical in both cases so the login endpoint cannot
// be used to enumerate registered emails. AttemptsRemaining is negative for
// unknown accounts and only populated once a real account's hash has been
// mismatched.
type BadCredentialsError struct {
	AttemptsRemaining int
}

func (e *BadCredentialsError) Error() string {
	if e.AttemptsRemaining >= 0 {
		return fmt.Sprintf("incorrect email or password (%d attempts remaining before lockout)", e.AttemptsRemaining)
	}
	return "incorrect email or password"
}

func (e *BadCredentialsError) Unwrap() error { return models.ErrUnauthorized }

// AccountLockedError is returned while an account is inside its lockout
// window. The unlock time is disclosed to the caller.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked due to too many failed login attempts; try again after %s",
		e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Unwrap() error { return models.ErrAccountLocked }
