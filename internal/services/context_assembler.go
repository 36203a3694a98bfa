package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

const (
	contextArticleLimit  = 3
	articleExcerptLength = 100
)

// ContextInput holds already-fetched sources. Empty fields produce no section.
type ContextInput struct {
	Facts     []*types.Fact
	Knowledge string
	Memory    string
	Articles  []*types.Article
}

// FormatContext renders sources in fixed order: profile facts, knowledge base,
// previous conversations, related articles. Sections are separated by a blank line.
func FormatContext(in ContextInput) string {
	parts := make([]string, 0, 4)

	if lines := factLines(in.Facts); len(lines) > 0 {
		parts = append(parts, "USER PROFILE:\n"+strings.Join(lines, "\n"))
	}
	if k := strings.TrimSpace(in.Knowledge); k != "" {
		parts = append(parts, "KNOWLEDGE BASE:\n"+k)
	}
	if m := strings.TrimSpace(in.Memory); m != "" {
		parts = append(parts, "PREVIOUS CONVERSATIONS:\n"+m)
	}
	if lines := articleLines(in.Articles); len(lines) > 0 {
		parts = append(parts, "RELEVANT ARTICLES:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func factLines(facts []*types.Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		if f == nil || !f.IsActive {
			continue
		}
		out = append(out, "- "+string(f.FactType)+": "+f.Value)
	}
	return out
}

func articleLines(articles []*types.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		var b strings.Builder
		b.WriteString("- ")
		b.WriteString(a.Title)
		if cn := strings.TrimSpace(a.CountryName); cn != "" {
			b.WriteString(" (")
			b.WriteString(cn)
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(truncateRunes(a.Excerpt, articleExcerptLength))
		b.WriteString("...")
		out = append(out, b.String())
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// KnowledgeSource returns preformatted knowledge-base text for a query.
type KnowledgeSource interface {
	Search(ctx context.Context, query string) (string, error)
}

// MemorySource returns prior-conversation memory for a user.
type MemorySource interface {
	Recall(ctx context.Context, externalUserID, query string) (string, error)
}

type ContextAssembler interface {
	Assemble(ctx context.Context, externalUserID, query string) (string, error)
	Gather(ctx context.Context, externalUserID, query string) ContextInput
}

type contextAssembler struct {
	log       *logger.Logger
	facts     FactStore
	articles  repos.ArticleRepo
	knowledge KnowledgeSource
	memory    MemorySource
}

// NewContextAssembler accepts nil knowledge and memory sources; their sections are then omitted.
func NewContextAssembler(
	baseLog *logger.Logger,
	facts FactStore,
	articles repos.ArticleRepo,
	knowledge KnowledgeSource,
	memory MemorySource,
) ContextAssembler {
	return &contextAssembler{
		log:       baseLog.With("service", "ContextAssembler"),
		facts:     facts,
		articles:  articles,
		knowledge: knowledge,
		memory:    memory,
	}
}

func (a *contextAssembler) Assemble(ctx context.Context, externalUserID, query string) (string, error) {
	return FormatContext(a.Gather(ctx, externalUserID, query)), nil
}

// Gather fetches every source concurrently. A failing source is logged and
// contributes nothing.
func (a *contextAssembler) Gather(ctx context.Context, externalUserID, query string) ContextInput {
	var in ContextInput
	anonymous := ctxutil.IsAnonymous(externalUserID)
	query = strings.TrimSpace(query)

	var g errgroup.Group
	if !anonymous && a.facts != nil {
		g.Go(func() error {
			facts, err := a.facts.ListFactsForUser(ctx, externalUserID)
			if err != nil {
				a.log.Warn("context facts unavailable", "error", err)
				return nil
			}
			in.Facts = facts
			return nil
		})
	}
	if a.knowledge != nil && query != "" {
		g.Go(func() error {
			k, err := a.knowledge.Search(ctx, query)
			if err != nil {
				a.log.Warn("context knowledge unavailable", "error", err)
				return nil
			}
			in.Knowledge = k
			return nil
		})
	}
	if !anonymous && a.memory != nil {
		g.Go(func() error {
			m, err := a.memory.Recall(ctx, externalUserID, query)
			if err != nil {
				a.log.Warn("context memory unavailable", "error", err)
				return nil
			}
			in.Memory = m
			return nil
		})
	}
	if a.articles != nil && query != "" {
		g.Go(func() error {
			arts, err := a.articles.Search(dbctx.Context{Ctx: ctx}, query, contextArticleLimit)
			if err != nil {
				a.log.Warn("context articles unavailable", "error", err)
				return nil
			}
			in.Articles = arts
			return nil
		})
	}
	_ = g.Wait()
	return in
}
