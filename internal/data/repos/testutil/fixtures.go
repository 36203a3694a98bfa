package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Profile {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Profile{
		ID:             uuid.New(),
		ExternalUserID: "user-" + uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedFact(tb testing.TB, ctx context.Context, tx *gorm.DB, profileID uuid.UUID, factType types.FactType, value string) *types.Fact {
	tb.Helper()
	now := time.Now().UTC()
	f := &types.Fact{
		ID:         uuid.New(),
		ProfileID:  profileID,
		FactType:   factType,
		Value:      value,
		Source:     types.SourceConversation,
		Confidence: 0.8,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed fact: %v", err)
	}
	return f
}

func SeedArticle(tb testing.TB, ctx context.Context, tx *gorm.DB, title, country, status string) *types.Article {
	tb.Helper()
	now := time.Now().UTC()
	a := &types.Article{
		ID:          uuid.New(),
		Title:       title,
		Slug:        uuid.NewString(),
		Excerpt:     "Relocation guide: " + country,
		Country:     country,
		CountryName: country,
		App:         "relocation",
		Status:      status,
		PublishedAt: &now,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return a
}
