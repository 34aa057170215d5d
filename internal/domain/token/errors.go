package token

import "errors"

var (
	// ErrInvalidToken is returned when a token fails verification for any
	// reason: bad signature, malformed payload, expiry, or wrong token kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned at construction time when a signing secret
	// is absent or too short. This is a configuration error, not a runtime one.
	ErrMissingSecret = errors.New("token signing secret missing or too short")
	// ErrUnknownKind is returned when a caller passes an unrecognized token kind
	ErrUnknownKind = errors.New("unknown token kind")
)
