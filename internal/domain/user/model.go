package user

import (
	"github.com/google/uuid"
	"github.com/tesserahq/trustgate/internal/database"
)

// User is the minimal account record the trust layer needs: identity,
// tenant binding, and the password hash. Profile data belongs to the
// business layer.
type User struct {
	database.BaseModel

	OrgID           uuid.UUID `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Email           string    `gorm:"column:email;not null;index:idx_users_email_domain,unique" json:"email"`
	WorkspaceDomain string    `gorm:"column:workspace_domain;not null;index:idx_users_email_domain,unique" json:"workspace_domain"`
	Password        string    `gorm:"column:password;not null" json:"-"`
	Role            string    `gorm:"column:role;not null;default:member" json:"role"`
	IsActive        bool      `gorm:"column:is_active;default:true" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}
