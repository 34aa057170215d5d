// Package token signs and verifies the compact claims tokens used at the
// request edge. Access and refresh tokens are signed with independent
// symmetric secrets so one kind can never verify under the other's key.
package token

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Kind selects the signing key and time-to-live for a token.
type Kind string

const (
	// KindAccess is the short-lived per-request token
	KindAccess Kind = "access"
	// KindRefresh is the long-lived rotation token
	KindRefresh Kind = "refresh"
)

// minSecretLength is the minimum accepted secret size in bytes
const minSecretLength = 32

// Claims is the signed payload carried by both token kinds. It is
// reconstructed from the token on verification, never persisted.
type Claims struct {
	UserID    string
	OrgID     string
	Role      string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds the secret material and lifetimes for the codec
type Config struct {
	Issuer        string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec issues and verifies claims tokens. It is purely functional over the
// configured secrets and the clock; safe for concurrent use.
type Codec struct {
	issuer     string
	accessKey  jwk.Key
	refreshKey jwk.Key
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec validates the secret material and builds a codec. A missing or
// short secret fails here so no unauthenticated code path can run later.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < minSecretLength {
		return nil, fmt.Errorf("%w: access secret must be at least %d bytes", ErrMissingSecret, minSecretLength)
	}
	if len(cfg.RefreshSecret) < minSecretLength {
		return nil, fmt.Errorf("%w: refresh secret must be at least %d bytes", ErrMissingSecret, minSecretLength)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMissingSecret)
	}

	accessKey, err := jwk.Import([]byte(cfg.AccessSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to import access secret: %w", err)
	}
	refreshKey, err := jwk.Import([]byte(cfg.RefreshSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to import refresh secret: %w", err)
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	return &Codec{
		issuer:     cfg.Issuer,
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// TTL returns the configured lifetime for the given kind
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) key(kind Kind) (jwk.Key, error) {
	switch kind {
	case KindAccess:
		return c.accessKey, nil
	case KindRefresh:
		return c.refreshKey, nil
	default:
		return nil, ErrUnknownKind
	}
}

// Issue signs the claims into a compact token of the given kind. The expiry
// is derived from the kind's TTL; IssuedAt/ExpiresAt on the input are ignored.
func (c *Codec) Issue(cl Claims, kind Kind) (string, error) {
	key, err := c.key(kind)
	if err != nil {
		return "", err
	}

	now := c.now()
	exp := now.Add(c.TTL(kind))

	tok, err := jwt.NewBuilder().
		Subject(cl.UserID).
		Issuer(c.issuer).
		IssuedAt(now).
		Expiration(exp).
		Claim("org", cl.OrgID).
		Claim("role", cl.Role).
		Claim("sid", cl.SessionID).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify parses and validates a token against the key for the claimed kind.
// Any failure collapses into ErrInvalidToken so callers cannot distinguish a
// forged token from an expired one.
func (c *Codec) Verify(raw string, kind Kind) (Claims, error) {
	key, err := c.key(kind)
	if err != nil {
		return Claims{}, err
	}

	parsed, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), key),
		jwt.WithValidate(true),
		jwt.WithIssuer(c.issuer),
		jwt.WithClock(jwt.ClockFunc(c.now)),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	cl := Claims{}
	if sub, ok := parsed.Subject(); ok {
		cl.UserID = sub
	}
	if iat, ok := parsed.IssuedAt(); ok {
		cl.IssuedAt = iat
	}
	if exp, ok := parsed.Expiration(); ok {
		cl.ExpiresAt = exp
	}

	var org, role, sid string
	if err := parsed.Get("org", &org); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if err := parsed.Get("role", &role); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if err := parsed.Get("sid", &sid); err != nil {
		return Claims{}, ErrInvalidToken
	}
	cl.OrgID = org
	cl.Role = role
	cl.SessionID = sid

	if cl.UserID == "" || cl.SessionID == "" {
		return Claims{}, ErrInvalidToken
	}

	return cl, nil
}

// WithClock overrides the codec's time source. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}
