package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Profile{},
		&types.Fact{},
		&types.PendingConfirmation{},
		&types.Article{},
	)
}

// EnsureProfileIndexes creates indexes GORM tags cannot express.
// The statements are valid on both Postgres and SQLite.
func EnsureProfileIndexes(db *gorm.DB) error {
	// One active fact per (profile, type).
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_profile_fact_active_type
		ON profile_fact (profile_id, fact_type)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_profile_fact_active_type: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_profile_fact_profile_updated
		ON profile_fact (profile_id, updated_at DESC)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_profile_fact_profile_updated: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pending_confirmation_pending_created
		ON pending_confirmation (created_at)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_pending_confirmation_pending_created: %w", err)
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureProfileIndexes(db)
}
