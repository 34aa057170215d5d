package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tesserahq/trustgate/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	// DB is the global database handle
	DB *gorm.DB
)

// BaseModel is embedded by all persisted models
type BaseModel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// BeforeCreate assigns an ID if the caller did not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ConnectDB opens the Postgres connection and stores it in the package-level DB handle
func ConnectDB(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	DB = db
	return nil
}
