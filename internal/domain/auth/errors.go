package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both a wrong password and an unknown
	// identifier; callers must not be able to tell the two apart
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned when a new password fails the minimum policy
	ErrWeakPassword = errors.New("password does not meet minimum requirements")
)

// LockedError reports an active login lockout with a retry hint
type LockedError struct {
	RetryAfterSeconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry after %d seconds", e.RetryAfterSeconds)
}
