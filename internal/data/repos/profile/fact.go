package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/dberr"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

// FactUpdate is the in-place overwrite applied by Supersede.
type FactUpdate struct {
	Value      string
	Source     types.FactSource
	Confidence float64
	Verified   bool
	Metadata   datatypes.JSON
}

type FactRepo interface {
	ListActive(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Fact, error)
	GetActiveByType(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType) (*types.Fact, error)
	GetByID(dbc dbctx.Context, profileID, factID uuid.UUID) (*types.Fact, error)
	Create(dbc dbctx.Context, fact *types.Fact) (*types.Fact, error)
	Supersede(dbc dbctx.Context, factID uuid.UUID, upd FactUpdate) (*types.Fact, error)
	Deactivate(dbc dbctx.Context, profileID, factID uuid.UUID) (bool, error)
}

type factRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFactRepo(db *gorm.DB, baseLog *logger.Logger) FactRepo {
	return &factRepo{
		db:  db,
		log: baseLog.With("repo", "FactRepo"),
	}
}

// ListActive returns active facts, most recently updated first.
func (r *factRepo) ListActive(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Fact, error) {
	out := []*types.Fact{}
	if profileID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("profile_id = ? AND is_active = ?", profileID, true).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, dberr.MapError("fact.list_active", err)
	}
	return out, nil
}

// GetActiveByType returns (nil, nil) when the type has no active fact.
func (r *factRepo) GetActiveByType(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType) (*types.Fact, error) {
	if profileID == uuid.Nil || factType == "" {
		return nil, nil
	}
	var f types.Fact
	err := dbc.DB(r.db).
		Where("profile_id = ? AND fact_type = ? AND is_active = ?", profileID, factType, true).
		Limit(1).
		Find(&f).Error
	if err != nil {
		return nil, dberr.MapError("fact.get_active_by_type", err)
	}
	if f.ID == uuid.Nil {
		return nil, nil
	}
	return &f, nil
}

// GetByID is scoped to the owning profile; inactive rows are returned too.
func (r *factRepo) GetByID(dbc dbctx.Context, profileID, factID uuid.UUID) (*types.Fact, error) {
	if profileID == uuid.Nil || factID == uuid.Nil {
		return nil, nil
	}
	var f types.Fact
	err := dbc.DB(r.db).
		Where("id = ? AND profile_id = ?", factID, profileID).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.MapError("fact.get_by_id", err)
	}
	return &f, nil
}

// Create inserts an active fact. A second active row for the same type fails the
// partial unique index and surfaces as a conflict.
func (r *factRepo) Create(dbc dbctx.Context, fact *types.Fact) (*types.Fact, error) {
	if fact == nil {
		return nil, facterr.Validation("fact.create", "fact is required")
	}
	if fact.ProfileID == uuid.Nil || fact.FactType == "" {
		return nil, facterr.Validation("fact.create", "profile id and fact type are required")
	}
	now := time.Now().UTC()
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	fact.Value = strings.TrimSpace(fact.Value)
	fact.IsActive = true
	fact.CreatedAt = now
	fact.UpdatedAt = now
	if err := dbc.DB(r.db).Create(fact).Error; err != nil {
		return nil, dberr.MapError("fact.create", err)
	}
	return fact, nil
}

// Supersede overwrites an active fact in place, keeping its id. A changed value
// moves the prior one into previous_value.
func (r *factRepo) Supersede(dbc dbctx.Context, factID uuid.UUID, upd FactUpdate) (*types.Fact, error) {
	if factID == uuid.Nil {
		return nil, facterr.Validation("fact.supersede", "fact id is required")
	}
	now := time.Now().UTC()
	value := strings.TrimSpace(upd.Value)
	updates := map[string]interface{}{
		"previous_value":   gorm.Expr("CASE WHEN fact_value <> ? THEN fact_value ELSE previous_value END", value),
		"fact_value":       value,
		"source":           upd.Source,
		"confidence":       upd.Confidence,
		"is_user_verified": upd.Verified,
		"updated_at":       now,
	}
	if upd.Verified {
		updates["verified_at"] = now
	} else {
		updates["verified_at"] = nil
	}
	if len(upd.Metadata) > 0 {
		updates["metadata"] = upd.Metadata
	}

	db := dbc.DB(r.db)
	res := db.Model(&types.Fact{}).
		Where("id = ? AND is_active = ?", factID, true).
		Updates(updates)
	if res.Error != nil {
		return nil, dberr.MapError("fact.supersede", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, facterr.NewError(facterr.CodeFactNotFound, "fact.supersede", "no active fact with that id", nil)
	}

	var f types.Fact
	if err := db.Where("id = ?", factID).First(&f).Error; err != nil {
		return nil, dberr.MapError("fact.supersede", err)
	}
	return &f, nil
}

// Deactivate clears is_active; rows are never deleted. Returns false when no
// active row matched.
func (r *factRepo) Deactivate(dbc dbctx.Context, profileID, factID uuid.UUID) (bool, error) {
	if profileID == uuid.Nil || factID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Model(&types.Fact{}).
		Where("id = ? AND profile_id = ? AND is_active = ?", factID, profileID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, dberr.MapError("fact.deactivate", res.Error)
	}
	return res.RowsAffected > 0, nil
}
