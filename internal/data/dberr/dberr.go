package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
)

// IsUniqueViolation detects unique constraint failures across drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint failed")
}

// MapError maps infrastructure failures into coded errors.
// Anything not otherwise classified is a store failure.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *facterr.Error
	if errors.As(err, &fe) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return facterr.Wrap(facterr.CodeNotFound, op, err)
	case IsUniqueViolation(err):
		return facterr.Wrap(facterr.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return facterr.Wrap(facterr.CodeStoreUnavailable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23503", code == "23502", code == "22P02":
			return facterr.Wrap(facterr.CodeValidation, op, err) // fk / not null / bad text repr
		case strings.HasPrefix(code, "08"), code == "40001", code == "40P01", code == "55P03", code == "57P01":
			return facterr.Wrap(facterr.CodeStoreUnavailable, op, err)
		}
	}
	return facterr.Wrap(facterr.CodeStoreUnavailable, op, err)
}
