package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tesserahq/trustgate/internal/domain/guard"
	"github.com/tesserahq/trustgate/internal/domain/session"
	"github.com/tesserahq/trustgate/internal/domain/user"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmailAndDomain(ctx context.Context, email, workspaceDomain string) (*user.User, error) {
	args := m.Called(ctx, email, workspaceDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, orgID, userID uuid.UUID, role string, meta session.Metadata) (*session.TokenPair, error) {
	args := m.Called(ctx, orgID, userID, role, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenPair), args.Error(1)
}

func (m *MockSessionService) Refresh(ctx context.Context, refreshToken string, meta session.Metadata) (*session.TokenPair, error) {
	args := m.Called(ctx, refreshToken, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenPair), args.Error(1)
}

func (m *MockSessionService) Logout(ctx context.Context, sessionID, orgID, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, orgID, userID)
	return args.Error(0)
}

func (m *MockSessionService) RevokeAllExcept(ctx context.Context, orgID, userID, keepSessionID uuid.UUID) error {
	args := m.Called(ctx, orgID, userID, keepSessionID)
	return args.Error(0)
}

func (m *MockSessionService) RevokeAll(ctx context.Context, orgID uuid.UUID) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := user.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func testUser(t *testing.T, password string) *user.User {
	u := &user.User{
		OrgID:           uuid.New(),
		Email:           "alice@example.com",
		WorkspaceDomain: "acme",
		Password:        mustHash(t, password),
		Role:            "member",
		IsActive:        true,
	}
	u.ID = uuid.New()
	return u
}

func loginRequest() LoginRequest {
	return LoginRequest{
		Email:           "alice@example.com",
		WorkspaceDomain: "acme",
		Password:        "correct horse battery",
	}
}

func TestLogin_Success(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionService)
	svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

	req := loginRequest()
	u := testUser(t, req.Password)
	pair := &session.TokenPair{SessionID: uuid.New(), AccessToken: "access", RefreshToken: "refresh"}
	meta := session.Metadata{UserAgent: "test-agent", IPAddress: "10.0.0.1"}

	users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).Return(u, nil)
	sessions.On("Create", mock.Anything, u.OrgID, u.ID, u.Role, meta).Return(pair, nil)

	got, err := svc.Login(context.Background(), req, meta)

	require.NoError(t, err)
	assert.Equal(t, pair, got)
	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	// Unknown users and wrong passwords must produce the same error so the
	// login form cannot be used to enumerate accounts
	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		req := loginRequest()
		users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).
			Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Login(context.Background(), req, session.Metadata{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		req := loginRequest()
		u := testUser(t, "a different password")
		users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).Return(u, nil)

		_, err := svc.Login(context.Background(), req, session.Metadata{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		req := loginRequest()
		u := testUser(t, req.Password)
		u.IsActive = false
		users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).Return(u, nil)

		_, err := svc.Login(context.Background(), req, session.Metadata{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionService)
	g := guard.NewMemoryGuard(guard.Config{})
	svc := NewService(users, sessions, g)

	req := loginRequest()
	users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).
		Return(nil, gorm.ErrRecordNotFound)

	for i := 0; i < 6; i++ {
		_, err := svc.Login(context.Background(), req, session.Metadata{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The 7th attempt is rejected before the credential check runs
	_, err := svc.Login(context.Background(), req, session.Metadata{})
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.RetryAfterSeconds, 0)

	// The lock is keyed per identifier and workspace; a sibling account in
	// the same workspace is unaffected
	other := req
	other.Email = "bob@example.com"
	users.On("FindByEmailAndDomain", mock.Anything, other.Email, other.WorkspaceDomain).
		Return(nil, gorm.ErrRecordNotFound)
	_, err = svc.Login(context.Background(), other, session.Metadata{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SuccessClearsFailureHistory(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionService)
	g := guard.NewMemoryGuard(guard.Config{})
	svc := NewService(users, sessions, g)

	req := loginRequest()
	u := testUser(t, req.Password)
	pair := &session.TokenPair{SessionID: uuid.New()}

	// 5 failures, one short of the threshold
	key := guard.Normalize(req.Email, req.WorkspaceDomain)
	for i := 0; i < 5; i++ {
		require.NoError(t, g.RegisterFailure(context.Background(), key))
	}

	users.On("FindByEmailAndDomain", mock.Anything, req.Email, req.WorkspaceDomain).Return(u, nil)
	sessions.On("Create", mock.Anything, u.OrgID, u.ID, u.Role, session.Metadata{}).Return(pair, nil)

	_, err := svc.Login(context.Background(), req, session.Metadata{})
	require.NoError(t, err)

	// The success wiped the slate: 5 more failures still do not lock
	for i := 0; i < 5; i++ {
		require.NoError(t, g.RegisterFailure(context.Background(), key))
	}
	st, err := g.IsLocked(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, st.Locked)
}

func TestChangePassword(t *testing.T) {
	current := "old password 123"
	ident := &Identity{
		UserID:    uuid.New(),
		OrgID:     uuid.New(),
		SessionID: uuid.New(),
		Role:      "member",
	}

	t.Run("success revokes other sessions", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		u := testUser(t, current)
		u.ID = ident.UserID

		users.On("FindByID", mock.Anything, ident.UserID).Return(u, nil)
		users.On("UpdatePassword", mock.Anything, u.ID, mock.AnythingOfType("string")).Return(nil)
		sessions.On("RevokeAllExcept", mock.Anything, ident.OrgID, ident.UserID, ident.SessionID).Return(nil)

		err := svc.ChangePassword(context.Background(), ident, current, "brand new password")
		require.NoError(t, err)
		users.AssertExpectations(t)
		sessions.AssertExpectations(t)

		// The stored hash verifies the new password, not the old one
		stored := users.Calls[1].Arguments.String(2)
		assert.True(t, user.VerifyPassword("brand new password", stored))
		assert.False(t, user.VerifyPassword(current, stored))
	})

	t.Run("weak password rejected before any lookup", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		err := svc.ChangePassword(context.Background(), ident, current, "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
		users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := new(MockUserRepository)
		sessions := new(MockSessionService)
		svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

		u := testUser(t, current)
		u.ID = ident.UserID
		users.On("FindByID", mock.Anything, ident.UserID).Return(u, nil)

		err := svc.ChangePassword(context.Background(), ident, "not the current one", "brand new password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "RevokeAllExcept", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLogout_DelegatesOwnership(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionService)
	svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

	ident := &Identity{UserID: uuid.New(), OrgID: uuid.New(), SessionID: uuid.New()}
	sessions.On("Logout", mock.Anything, ident.SessionID, ident.OrgID, ident.UserID).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), ident))
	sessions.AssertExpectations(t)
}

func TestRevokeOtherSessions(t *testing.T) {
	users := new(MockUserRepository)
	sessions := new(MockSessionService)
	svc := NewService(users, sessions, guard.NewMemoryGuard(guard.Config{}))

	ident := &Identity{UserID: uuid.New(), OrgID: uuid.New(), SessionID: uuid.New()}
	wantErr := errors.New("storage down")
	sessions.On("RevokeAllExcept", mock.Anything, ident.OrgID, ident.UserID, ident.SessionID).Return(wantErr)

	err := svc.RevokeOtherSessions(context.Background(), ident)
	assert.ErrorIs(t, err, wantErr)
	sessions.AssertExpectations(t)
}
