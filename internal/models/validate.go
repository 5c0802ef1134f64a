package models

import (
	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
)

func errFieldRequired(field string) error {
	return apperrors.NewValidationError(field, nil, "is required")
}

func errFieldInvalid(field string, value interface{}) error {
	return apperrors.NewValidationError(field, value, "is invalid")
}
