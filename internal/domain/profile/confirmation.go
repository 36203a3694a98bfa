package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PendingConfirmation is a detected change waiting on a human decision.
// It does not reference a Fact row: resolution reads the active fact at approval time.
type PendingConfirmation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;column:profile_id;index:idx_pending_confirmation_profile_status,priority:1" json:"profile_id"`
	FactType  FactType  `gorm:"column:fact_type;not null" json:"fact_type"`

	// OldValue is nil when no active fact existed at enqueue time.
	OldValue *string `gorm:"column:old_value;type:text" json:"old_value"`
	NewValue string  `gorm:"column:new_value;type:text;not null" json:"new_value"`

	Source     FactSource         `gorm:"column:source;not null" json:"source"`
	Confidence float64            `gorm:"column:confidence;not null" json:"confidence"`
	Status     ConfirmationStatus `gorm:"column:status;not null;index:idx_pending_confirmation_profile_status,priority:2" json:"status"`

	// The utterance pair that triggered extraction.
	UserMessage string `gorm:"column:user_message;type:text" json:"user_message"`
	AIResponse  string `gorm:"column:ai_response;type:text" json:"ai_response"`

	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt   time.Time  `gorm:"not null;index:idx_pending_confirmation_profile_status,priority:3" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
}

func (PendingConfirmation) TableName() string { return "pending_confirmation" }

func (c *PendingConfirmation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
