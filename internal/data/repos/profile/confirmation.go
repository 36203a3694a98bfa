package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/dberr"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type ConfirmationRepo interface {
	Create(dbc dbctx.Context, c *types.PendingConfirmation) (*types.PendingConfirmation, error)
	ListPending(dbc dbctx.Context, profileID uuid.UUID) ([]*types.PendingConfirmation, error)
	FindPending(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType, newValue string) (*types.PendingConfirmation, error)
	GetByID(dbc dbctx.Context, profileID, id uuid.UUID) (*types.PendingConfirmation, error)
	Transition(dbc dbctx.Context, profileID, id uuid.UUID, to types.ConfirmationStatus, at time.Time) (bool, error)
	RejectPendingOfType(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType, exceptID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	ListStale(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.PendingConfirmation, error)
}

type confirmationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfirmationRepo(db *gorm.DB, baseLog *logger.Logger) ConfirmationRepo {
	return &confirmationRepo{
		db:  db,
		log: baseLog.With("repo", "ConfirmationRepo"),
	}
}

func (r *confirmationRepo) Create(dbc dbctx.Context, c *types.PendingConfirmation) (*types.PendingConfirmation, error) {
	if c == nil {
		return nil, facterr.Validation("confirmation.create", "confirmation is required")
	}
	if c.ProfileID == uuid.Nil || c.FactType == "" {
		return nil, facterr.Validation("confirmation.create", "profile id and fact type are required")
	}
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.NewValue = strings.TrimSpace(c.NewValue)
	c.Status = types.StatusPending
	c.ConfirmedAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := dbc.DB(r.db).Create(c).Error; err != nil {
		return nil, dberr.MapError("confirmation.create", err)
	}
	return c, nil
}

// ListPending returns pending rows, newest first.
func (r *confirmationRepo) ListPending(dbc dbctx.Context, profileID uuid.UUID) ([]*types.PendingConfirmation, error) {
	out := []*types.PendingConfirmation{}
	if profileID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("profile_id = ? AND status = ?", profileID, types.StatusPending).
		Order("created_at DESC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, dberr.MapError("confirmation.list_pending", err)
	}
	return out, nil
}

// FindPending returns the newest pending row proposing newValue, or nil. Values
// compare trimmed and case-insensitively, the same way policy.SameValue does.
func (r *confirmationRepo) FindPending(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType, newValue string) (*types.PendingConfirmation, error) {
	if profileID == uuid.Nil || factType == "" {
		return nil, nil
	}
	var c types.PendingConfirmation
	err := dbc.DB(r.db).
		Where("profile_id = ? AND fact_type = ? AND status = ? AND LOWER(TRIM(new_value)) = ?",
			profileID, factType, types.StatusPending, strings.ToLower(strings.TrimSpace(newValue))).
		Order("created_at DESC").
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, dberr.MapError("confirmation.find_pending", err)
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *confirmationRepo) GetByID(dbc dbctx.Context, profileID, id uuid.UUID) (*types.PendingConfirmation, error) {
	if profileID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var c types.PendingConfirmation
	err := dbc.DB(r.db).
		Where("id = ? AND profile_id = ?", id, profileID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.MapError("confirmation.get_by_id", err)
	}
	return &c, nil
}

// Transition moves a pending row to a terminal status. It is a conditional
// update on status = pending: false means the row is missing or already resolved.
func (r *confirmationRepo) Transition(dbc dbctx.Context, profileID, id uuid.UUID, to types.ConfirmationStatus, at time.Time) (bool, error) {
	if profileID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	if to != types.StatusApproved && to != types.StatusRejected {
		return false, facterr.Invariant("confirmation.transition", "target status must be terminal")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := dbc.DB(r.db).Model(&types.PendingConfirmation{}).
		Where("id = ? AND profile_id = ? AND status = ?", id, profileID, types.StatusPending).
		Updates(map[string]interface{}{
			"status":       to,
			"confirmed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, dberr.MapError("confirmation.transition", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RejectPendingOfType rejects every other pending row of the type and returns their ids.
func (r *confirmationRepo) RejectPendingOfType(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType, exceptID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	if profileID == uuid.Nil || factType == "" {
		return nil, nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	db := dbc.DB(r.db)

	var ids []uuid.UUID
	q := db.Model(&types.PendingConfirmation{}).
		Where("profile_id = ? AND fact_type = ? AND status = ?", profileID, factType, types.StatusPending)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, dberr.MapError("confirmation.reject_pending_of_type", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	if err := db.Model(&types.PendingConfirmation{}).
		Where("id IN ? AND status = ?", ids, types.StatusPending).
		Updates(map[string]interface{}{
			"status":       types.StatusRejected,
			"confirmed_at": at,
			"updated_at":   at,
		}).Error; err != nil {
		return nil, dberr.MapError("confirmation.reject_pending_of_type", err)
	}
	return ids, nil
}

// ListStale returns pending rows created before the cutoff, oldest first.
func (r *confirmationRepo) ListStale(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.PendingConfirmation, error) {
	out := []*types.PendingConfirmation{}
	if createdBefore.IsZero() {
		return out, nil
	}
	if limit <= 0 {
		limit = 500
	}
	if err := dbc.DB(r.db).
		Where("status = ? AND created_at < ?", types.StatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, dberr.MapError("confirmation.list_stale", err)
	}
	return out, nil
}
