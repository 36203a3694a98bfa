package profile

import (
	"context"
	"testing"

	"github.com/yungbote/relocation-backend/internal/data/repos/testutil"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
)

func TestArticleRepo_Search(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	testutil.SeedArticle(t, ctx, tx, "Moving to Cyprus: visas", "Cyprus", ArticleStatusPublished)
	testutil.SeedArticle(t, ctx, tx, "Cost of living in Lisbon", "Portugal", ArticleStatusPublished)
	testutil.SeedArticle(t, ctx, tx, "Cyprus draft", "Cyprus", "draft")

	repo := NewArticleRepo(db, testutil.Logger(t))

	cases := []struct {
		query string
		want  int
	}{
		{query: "what about CYPRUS?", want: 1},
		{query: "portugal or cyprus", want: 2},
		{query: "hi", want: 0},
		{query: "", want: 0},
	}
	for _, tc := range cases {
		got, err := repo.Search(dbc, tc.query, 5)
		if err != nil {
			t.Fatalf("Search(%q): %v", tc.query, err)
		}
		if len(got) != tc.want {
			t.Fatalf("Search(%q): got %d articles want %d", tc.query, len(got), tc.want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	got := searchTerms("Moving to Cyprus, cyprus and PORTUGAL!")
	want := []string{"moving", "cyprus", "portugal"}
	if len(got) != len(want) {
		t.Fatalf("searchTerms: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("searchTerms[%d]: got %q want %q", i, got[i], want[i])
		}
	}
}
