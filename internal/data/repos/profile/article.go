package profile

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/dberr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

const ArticleStatusPublished = "published"

type ArticleRepo interface {
	Search(dbc dbctx.Context, query string, limit int) ([]*types.Article, error)
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{
		db:  db,
		log: baseLog.With("repo", "ArticleRepo"),
	}
}

// Search matches published articles whose title, excerpt or country contains any
// query term. Results are newest first; there is no relevance ranking.
func (r *articleRepo) Search(dbc dbctx.Context, query string, limit int) ([]*types.Article, error) {
	out := []*types.Article{}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return out, nil
	}
	if limit <= 0 {
		limit = 3
	}

	clauses := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*3)
	for _, term := range terms {
		like := "%" + term + "%"
		clauses = append(clauses, "LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(country_name) LIKE ?")
		args = append(args, like, like, like)
	}
	if err := dbc.DB(r.db).
		Where("status = ?", ArticleStatusPublished).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("published_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, dberr.MapError("article.search", err)
	}
	return out, nil
}

func searchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	seen := map[string]bool{}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 4 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == 8 {
			break
		}
	}
	return out
}
