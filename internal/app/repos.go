package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type Repos struct {
	Profile      repos.ProfileRepo
	Fact         repos.FactRepo
	Confirmation repos.ConfirmationRepo
	Article      repos.ArticleRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profile:      repos.NewProfileRepo(db, log),
		Fact:         repos.NewFactRepo(db, log),
		Confirmation: repos.NewConfirmationRepo(db, log),
		Article:      repos.NewArticleRepo(db, log),
	}
}
