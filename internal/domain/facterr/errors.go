package facterr

import (
	"errors"
	"fmt"
	"strings"
)

// Code standardizes failure semantics across the fact pipeline.
type Code string

const (
	CodeValidation           Code = "validation"
	CodeProfileNotFound      Code = "profile_not_found"
	CodeFactNotFound         Code = "fact_not_found"
	CodeConfirmationNotFound Code = "confirmation_not_found"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeStoreUnavailable     Code = "store_unavailable"
	CodeInternal             Code = "internal"
)

// Error is the canonical coded error.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a coded error with explicit operation.
func NewError(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries code.
func IsCode(err error, code Code) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Code == code
}

// CodeOf extracts the code when available.
func CodeOf(err error) Code {
	var fe *Error
	if !errors.As(err, &fe) {
		return ""
	}
	return fe.Code
}

// IsNotFound reports any of the not-found codes.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeNotFound, CodeProfileNotFound, CodeFactNotFound, CodeConfirmationNotFound:
		return true
	default:
		return false
	}
}

func Validation(op, msg string) error {
	return NewError(CodeValidation, op, msg, nil)
}

func Invariant(op, msg string) error {
	return NewError(CodeInvariantViolation, op, msg, nil)
}
