package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errRotationLost aborts the rotation transaction when the conditional
// revoke misses, meaning a concurrent refresh already rotated the session
var errRotationLost = errors.New("rotation lost to concurrent refresh")

// Repository is the durable session store
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	// FindByID returns the session regardless of revocation state so the
	// service can distinguish reuse from a stale lookup
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// Rotate atomically revokes the old session and inserts its successor.
	// The revoke is conditional on the old refresh hash still being current;
	// it returns false without side effects when the condition misses.
	Rotate(ctx context.Context, oldID uuid.UUID, oldHash string, next *Session) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	// RevokeFamily revokes every live session in a login lineage
	RevokeFamily(ctx context.Context, familyID uuid.UUID) error
	FindActiveByUser(ctx context.Context, orgID, userID uuid.UUID) ([]Session, error)
	RevokeAllExcept(ctx context.Context, orgID, userID, keepID uuid.UUID) (int64, error)
	RevokeAllForOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed session repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, sess *Session) error {
	return r.db.WithContext(ctx).Create(sess).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) Rotate(ctx context.Context, oldID uuid.UUID, oldHash string, next *Session) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Session{}).
			Where("id = ? AND refresh_hash = ? AND revoked = false", oldID, oldHash).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errRotationLost
		}
		return tx.Create(next).Error
	})
	if errors.Is(err, errRotationLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND revoked = false", id).
		Update("revoked", true).Error
}

func (r *repository) RevokeFamily(ctx context.Context, familyID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("family_id = ? AND revoked = false", familyID).
		Update("revoked", true).Error
}

func (r *repository) FindActiveByUser(ctx context.Context, orgID, userID uuid.UUID) ([]Session, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ? AND revoked = false", orgID, userID).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) RevokeAllExcept(ctx context.Context, orgID, userID, keepID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("org_id = ? AND user_id = ? AND id <> ? AND revoked = false", orgID, userID, keepID).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (r *repository) RevokeAllForOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("org_id = ? AND revoked = false", orgID).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}
