package auth

import "github.com/google/uuid"

// Identity is the verified caller attached to the request context
type Identity struct {
	UserID    uuid.UUID
	OrgID     uuid.UUID
	SessionID uuid.UUID
	Role      string
}

// LoginRequest is the login endpoint payload
type LoginRequest struct {
	Email           string `json:"email"`
	WorkspaceDomain string `json:"workspace_domain"`
	Password        string `json:"password"`
}

// RefreshRequest is the refresh endpoint payload; the token may also arrive
// via the refresh cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest is the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
