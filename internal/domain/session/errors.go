package session

import "errors"

var (
	// ErrSessionExpired is returned when a token verifies but its session is
	// missing, revoked, past expiry, or bound to a different tenant
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionNotFound is returned by logout when the session does not exist
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotSessionOwner is returned when a caller tries to revoke a session
	// it does not own
	ErrNotSessionOwner = errors.New("session not owned by caller")
	// ErrStoreUnavailable wraps storage failures. Retryable by the caller;
	// never a security decision.
	ErrStoreUnavailable = errors.New("session store unavailable")
)
