package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article is a published relocation guide, read as context for generation.
type Article struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Slug        string     `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Excerpt     string     `gorm:"column:excerpt;type:text" json:"excerpt"`
	Country     string     `gorm:"column:country;index" json:"country"`
	CountryName string     `gorm:"column:country_name" json:"country_name"`
	App         string     `gorm:"column:app;index" json:"app"`
	Status      string     `gorm:"column:status;index" json:"status"`
	PublishedAt *time.Time `gorm:"column:published_at;index" json:"published_at,omitempty"`
}

func (Article) TableName() string { return "relocation_article" }

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
