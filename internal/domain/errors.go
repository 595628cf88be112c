package domain

import (
	"errors"

	"github.com/titikruang/ruang/pkg/validator"
)

var (
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrValidation          = errors.New("validation failed")
	ErrQuotaExceeded       = errors.New("group quota exceeded")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func NewValidationError(fields validator.ValidationErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Fields.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
