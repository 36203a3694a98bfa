package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want facterr.Code
	}{
		{name: "record_not_found", err: gorm.ErrRecordNotFound, want: facterr.CodeNotFound},
		{name: "gorm_duplicated_key", err: gorm.ErrDuplicatedKey, want: facterr.CodeConflict},
		{name: "pg_unique_violation", err: &pgconn.PgError{Code: "23505"}, want: facterr.CodeConflict},
		{name: "sqlite_unique_violation", err: errors.New("UNIQUE constraint failed: profile_fact.profile_id"), want: facterr.CodeConflict},
		{name: "pg_connection_failure", err: &pgconn.PgError{Code: "08006"}, want: facterr.CodeStoreUnavailable},
		{name: "pg_fk_violation", err: &pgconn.PgError{Code: "23503"}, want: facterr.CodeValidation},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: facterr.CodeStoreUnavailable},
		{name: "unclassified", err: errors.New("broken pipe"), want: facterr.CodeStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if !facterr.IsCode(got, tc.want) {
				t.Fatalf("MapError(%v) code=%q, want %q", tc.err, facterr.CodeOf(got), tc.want)
			}
		})
	}
}

func TestMapError_PassthroughCoded(t *testing.T) {
	in := facterr.NewError(facterr.CodeInvariantViolation, "op", "boom", nil)
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough of coded error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("MapError(nil) should be nil")
	}
}
