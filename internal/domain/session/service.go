package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesserahq/trustgate/internal/credential"
	"github.com/tesserahq/trustgate/internal/domain/token"
)

// RevocationMarker pushes session revocations into a shared cache so access
// tokens die before their natural expiry. Best effort; a nil marker disables it.
type RevocationMarker interface {
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
}

// Service owns the session lifecycle and the refresh rotation protocol
type Service interface {
	// Create mints a new session and its token pair for a fresh login
	Create(ctx context.Context, orgID, userID uuid.UUID, role string, meta Metadata) (*TokenPair, error)
	// Refresh rotates the session behind a refresh token, detecting reuse
	Refresh(ctx context.Context, refreshToken string, meta Metadata) (*TokenPair, error)
	// Logout revokes the session if it belongs to the caller
	Logout(ctx context.Context, sessionID, orgID, userID uuid.UUID) error
	// RevokeAllExcept revokes every other live session of the user,
	// typically after a password change
	RevokeAllExcept(ctx context.Context, orgID, userID, keepSessionID uuid.UUID) error
	// RevokeAll revokes every live session in the organization
	RevokeAll(ctx context.Context, orgID uuid.UUID) error
}

type service struct {
	repo        Repository
	codec       *token.Codec
	secrets     credential.Verifier
	revocations RevocationMarker
	now         func() time.Time
}

// NewService builds the session service. revocations may be nil.
func NewService(repo Repository, codec *token.Codec, secrets credential.Verifier, revocations RevocationMarker) Service {
	return &service{
		repo:        repo,
		codec:       codec,
		secrets:     secrets,
		revocations: revocations,
		now:         time.Now,
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// mint issues a token pair for a new session row and returns both. The
// refresh token is hashed into the row; the plaintext only travels back to
// the caller.
func (s *service) mint(orgID, userID uuid.UUID, role string, familyID uuid.UUID, meta Metadata) (*Session, *TokenPair, error) {
	sid := uuid.New()
	claims := token.Claims{
		UserID:    userID.String(),
		OrgID:     orgID.String(),
		Role:      role,
		SessionID: sid.String(),
	}

	refresh, err := s.codec.Issue(claims, token.KindRefresh)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.codec.Issue(claims, token.KindAccess)
	if err != nil {
		return nil, nil, err
	}

	sess := &Session{
		OrgID:       orgID,
		UserID:      userID,
		Role:        role,
		FamilyID:    familyID,
		RefreshHash: s.secrets.Hash(refresh),
		UserAgent:   meta.UserAgent,
		IPAddress:   meta.IPAddress,
		ExpiresAt:   s.now().UTC().Add(s.codec.TTL(token.KindRefresh)),
	}
	sess.ID = sid

	return sess, &TokenPair{SessionID: sid, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) Create(ctx context.Context, orgID, userID uuid.UUID, role string, meta Metadata) (*TokenPair, error) {
	// A fresh login starts a new lineage
	sess, pair, err := s.mint(orgID, userID, role, uuid.New(), meta)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	return pair, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string, meta Metadata) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	sess, err := s.repo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, storeErr(err)
	}

	// Cross-tenant token confusion fails closed before any hash comparison
	if sess.OrgID.String() != claims.OrgID || sess.UserID.String() != claims.UserID {
		return nil, ErrSessionExpired
	}

	now := s.now().UTC()
	if now.After(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	hashMatch := s.secrets.Verify(refreshToken, sess.RefreshHash)

	if sess.Revoked {
		if hashMatch {
			// The token was valid for this session once and the session has
			// since rotated: this is a replay. Kill the whole lineage.
			return nil, s.handleReuse(ctx, sess)
		}
		return nil, ErrSessionExpired
	}

	if !hashMatch {
		// A verified token whose hash no longer matches the live session
		// means a stale generation is being replayed
		return nil, s.handleReuse(ctx, sess)
	}

	next, pair, err := s.mint(sess.OrgID, sess.UserID, sess.Role, sess.FamilyID, meta)
	if err != nil {
		return nil, err
	}

	rotated, err := s.repo.Rotate(ctx, sess.ID, sess.RefreshHash, next)
	if err != nil {
		return nil, storeErr(err)
	}
	if !rotated {
		// A concurrent refresh won the conditional update; this presentation
		// is now a reuse of an already-rotated token
		return nil, s.handleReuse(ctx, sess)
	}

	s.markRevoked(ctx, sess)
	return pair, nil
}

// handleReuse revokes the session's entire lineage and reports the token as
// invalid. Reuse of a rotated refresh token is a security incident, not a
// recoverable state.
func (s *service) handleReuse(ctx context.Context, sess *Session) error {
	slog.Warn("Refresh token reuse detected, revoking session family",
		"session_id", sess.ID.String(),
		"family_id", sess.FamilyID.String(),
		"user_id", sess.UserID.String(),
		"org_id", sess.OrgID.String(),
	)
	if err := s.repo.RevokeFamily(ctx, sess.FamilyID); err != nil {
		return storeErr(err)
	}
	s.markRevoked(ctx, sess)
	return token.ErrInvalidToken
}

func (s *service) Logout(ctx context.Context, sessionID, orgID, userID uuid.UUID) error {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return storeErr(err)
	}

	if sess.OrgID != orgID || sess.UserID != userID {
		return ErrNotSessionOwner
	}

	if err := s.repo.Revoke(ctx, sessionID); err != nil {
		return storeErr(err)
	}
	s.markRevoked(ctx, sess)
	return nil
}

func (s *service) RevokeAllExcept(ctx context.Context, orgID, userID, keepSessionID uuid.UUID) error {
	sessions, err := s.repo.FindActiveByUser(ctx, orgID, userID)
	if err != nil {
		return storeErr(err)
	}

	if _, err := s.repo.RevokeAllExcept(ctx, orgID, userID, keepSessionID); err != nil {
		return storeErr(err)
	}

	for i := range sessions {
		if sessions[i].ID == keepSessionID {
			continue
		}
		s.markRevoked(ctx, &sessions[i])
	}
	return nil
}

func (s *service) RevokeAll(ctx context.Context, orgID uuid.UUID) error {
	count, err := s.repo.RevokeAllForOrg(ctx, orgID)
	if err != nil {
		return storeErr(err)
	}
	slog.Info("Revoked all sessions for organization", "org_id", orgID.String(), "count", count)
	return nil
}

// markRevoked records the revocation in the shared cache, best effort
func (s *service) markRevoked(ctx context.Context, sess *Session) {
	if s.revocations == nil {
		return
	}
	ttl := sess.ExpiresAt.Sub(s.now().UTC())
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.revocations.RevokeSession(ctx, sess.ID.String(), ttl); err != nil {
		slog.Warn("Failed to record session revocation in cache", "error", err, "session_id", sess.ID.String())
	}
}
