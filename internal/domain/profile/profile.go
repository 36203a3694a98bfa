package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the single row owned by one external user identity.
type Profile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalUserID string    `gorm:"column:external_user_id;uniqueIndex;not null" json:"external_user_id"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string { return "relocation_profile" }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
