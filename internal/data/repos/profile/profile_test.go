package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/data/repos/testutil"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
)

func TestProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewProfileRepo(db, testutil.Logger(t))

	missing, err := repo.GetByExternalID(dbc, "nobody")
	if err != nil {
		t.Fatalf("GetByExternalID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByExternalID (missing): expected nil, got %+v", missing)
	}

	first, err := repo.GetOrCreate(dbc, " user-1 ")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.ID == uuid.Nil || first.ExternalUserID != "user-1" {
		t.Fatalf("GetOrCreate: unexpected profile %+v", first)
	}

	again, err := repo.GetOrCreate(dbc, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate (again): %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("GetOrCreate (again): id=%s want %s", again.ID, first.ID)
	}

	byID, err := repo.GetByID(dbc, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.ExternalUserID != "user-1" {
		t.Fatalf("GetByID: unexpected %+v", byID)
	}

	if _, err := repo.GetOrCreate(dbc, "  "); !facterr.IsCode(err, facterr.CodeValidation) {
		t.Fatalf("GetOrCreate (blank): expected validation error, got %v", err)
	}
}

func TestProfileRepo_GetOrCreateAfterLostRace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	seeded := testutil.SeedProfile(t, ctx, tx)
	repo := NewProfileRepo(db, testutil.Logger(t))

	got, err := repo.GetOrCreate(dbc, seeded.ExternalUserID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("GetOrCreate: expected existing profile %s, got %s", seeded.ID, got.ID)
	}
}
