package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/repos/profile"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type ProfileRepo = profile.ProfileRepo
type FactRepo = profile.FactRepo
type ConfirmationRepo = profile.ConfirmationRepo
type ArticleRepo = profile.ArticleRepo

type FactUpdate = profile.FactUpdate

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return profile.NewProfileRepo(db, baseLog)
}
func NewFactRepo(db *gorm.DB, baseLog *logger.Logger) FactRepo {
	return profile.NewFactRepo(db, baseLog)
}
func NewConfirmationRepo(db *gorm.DB, baseLog *logger.Logger) ConfirmationRepo {
	return profile.NewConfirmationRepo(db, baseLog)
}
func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return profile.NewArticleRepo(db, baseLog)
}
