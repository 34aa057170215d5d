package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/tesserahq/trustgate/internal/database"
)

// Session is one continuous login lineage. Rotation creates a new session and
// revokes the old one; rows are never mutated in place except to flip Revoked.
type Session struct {
	database.BaseModel

	OrgID  uuid.UUID `gorm:"column:org_id;type:uuid;not null;index"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Role   string    `gorm:"column:role;not null"`

	// FamilyID ties every session descended from one login together so
	// reuse detection can revoke the whole lineage at once
	FamilyID uuid.UUID `gorm:"column:family_id;type:uuid;not null;index"`

	// RefreshHash is the hash of the current refresh token; the plaintext
	// is never stored
	RefreshHash string `gorm:"column:refresh_hash;not null"`

	UserAgent string `gorm:"column:user_agent;type:text"`
	IPAddress string `gorm:"column:ip_address;type:text"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Revoked   bool      `gorm:"column:revoked;default:false"`
}

func (Session) TableName() string {
	return "sessions"
}

// TokenPair is the access/refresh pair bound to one session
type TokenPair struct {
	SessionID    uuid.UUID `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

// Metadata is the request context recorded on a session
type Metadata struct {
	UserAgent string
	IPAddress string
}
