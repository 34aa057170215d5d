package auth

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/tesserahq/trustgate/internal/domain/guard"
	"github.com/tesserahq/trustgate/internal/domain/session"
	"github.com/tesserahq/trustgate/internal/domain/user"
)

const minPasswordLength = 8

// AuthService is the login-path orchestration consumed by the handlers
type AuthService interface {
	Login(ctx context.Context, req LoginRequest, meta session.Metadata) (*session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, meta session.Metadata) (*session.TokenPair, error)
	Logout(ctx context.Context, ident *Identity) error
	ChangePassword(ctx context.Context, ident *Identity, currentPassword, newPassword string) error
	RevokeOtherSessions(ctx context.Context, ident *Identity) error
}

// Service wires the login guard, credential check, and session lifecycle
type Service struct {
	users    user.Repository
	sessions session.Service
	guard    guard.Guard
}

// NewService creates a new auth service
func NewService(users user.Repository, sessions session.Service, g guard.Guard) *Service {
	return &Service{users: users, sessions: sessions, guard: g}
}

// Login authenticates a user. The guard is consulted before the credential
// check and updated after; guard store failures degrade to an open guard
// because lockout is an availability defense, not an auth decision.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta session.Metadata) (*session.TokenPair, error) {
	key := guard.Normalize(req.Email, req.WorkspaceDomain)

	status, err := s.guard.IsLocked(ctx, key)
	if err != nil {
		slog.Warn("Login guard unavailable, continuing without lockout check", "error", err)
	} else if status.Locked {
		return nil, &LockedError{RetryAfterSeconds: status.RetryAfterSeconds}
	}

	u, err := s.users.FindByEmailAndDomain(ctx, req.Email, req.WorkspaceDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, key)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive || !user.VerifyPassword(req.Password, u.Password) {
		s.recordFailure(ctx, key)
		return nil, ErrInvalidCredentials
	}

	if err := s.guard.ClearOnSuccess(ctx, key); err != nil {
		slog.Warn("Failed to clear login guard after success", "error", err)
	}

	return s.sessions.Create(ctx, u.OrgID, u.ID, u.Role, meta)
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	if err := s.guard.RegisterFailure(ctx, key); err != nil {
		slog.Warn("Failed to record login failure", "error", err)
	}
}

// Refresh rotates the token pair behind a refresh token
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta session.Metadata) (*session.TokenPair, error) {
	return s.sessions.Refresh(ctx, refreshToken, meta)
}

// Logout revokes the caller's own session
func (s *Service) Logout(ctx context.Context, ident *Identity) error {
	return s.sessions.Logout(ctx, ident.SessionID, ident.OrgID, ident.UserID)
}

// ChangePassword rehashes the credential and invalidates every other live
// session of the user, keeping only the one the change was made from
func (s *Service) ChangePassword(ctx context.Context, ident *Identity, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.users.FindByID(ctx, ident.UserID)
	if err != nil {
		return err
	}

	if !user.VerifyPassword(currentPassword, u.Password) {
		return ErrInvalidCredentials
	}

	hash, err := user.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	return s.sessions.RevokeAllExcept(ctx, ident.OrgID, ident.UserID, ident.SessionID)
}

// RevokeOtherSessions logs the user out everywhere else
func (s *Service) RevokeOtherSessions(ctx context.Context, ident *Identity) error {
	return s.sessions.RevokeAllExcept(ctx, ident.OrgID, ident.UserID, ident.SessionID)
}
