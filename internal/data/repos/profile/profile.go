package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/relocation-backend/internal/data/dberr"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type ProfileRepo interface {
	GetByExternalID(dbc dbctx.Context, externalUserID string) (*types.Profile, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Profile, error)
	GetOrCreate(dbc dbctx.Context, externalUserID string) (*types.Profile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{
		db:  db,
		log: baseLog.With("repo", "ProfileRepo"),
	}
}

// GetByExternalID returns (nil, nil) when no profile exists.
func (r *profileRepo) GetByExternalID(dbc dbctx.Context, externalUserID string) (*types.Profile, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, nil
	}
	var p types.Profile
	err := dbc.DB(r.db).
		Where("external_user_id = ?", externalUserID).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, dberr.MapError("profile.get_by_external_id", err)
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Profile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.Profile
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.MapError("profile.get_by_id", err)
	}
	return &p, nil
}

// GetOrCreate is idempotent under concurrent first contact: the insert is a no-op
// when another caller won, and the row is re-read either way.
func (r *profileRepo) GetOrCreate(dbc dbctx.Context, externalUserID string) (*types.Profile, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, facterr.Validation("profile.get_or_create", "external user id is required")
	}
	if existing, err := r.GetByExternalID(dbc, externalUserID); err != nil || existing != nil {
		return existing, err
	}

	now := time.Now().UTC()
	row := &types.Profile{
		ID:             uuid.New(),
		ExternalUserID: externalUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil && !dberr.IsUniqueViolation(err) {
		return nil, dberr.MapError("profile.get_or_create", err)
	}

	p, err := r.GetByExternalID(dbc, externalUserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, facterr.NewError(facterr.CodeInternal, "profile.get_or_create", "profile vanished after insert", nil)
	}
	return p, nil
}
