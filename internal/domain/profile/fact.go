package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fact is a typed attribute of a profile. At most one row per (profile_id, fact_type)
// is active; the partial unique index idx_profile_fact_active_type enforces it.
type Fact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;index;column:profile_id" json:"profile_id"`
	FactType  FactType  `gorm:"column:fact_type;not null" json:"fact_type"`
	Value     string    `gorm:"column:fact_value;type:text;not null" json:"fact_value"`

	// PreviousValue holds the value this row had before its last supersede.
	PreviousValue *string `gorm:"column:previous_value;type:text" json:"previous_value,omitempty"`

	Source         FactSource `gorm:"column:source;not null" json:"source"`
	Confidence     float64    `gorm:"column:confidence;not null" json:"confidence"`
	IsUserVerified bool       `gorm:"column:is_user_verified;not null" json:"is_user_verified"`
	IsActive       bool       `gorm:"column:is_active;not null" json:"is_active"`
	VerifiedAt     *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`

	// Extraction evidence: channel, matcher name.
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Fact) TableName() string { return "profile_fact" }

func (f *Fact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
