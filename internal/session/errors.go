package session

import (
	"errors"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrReportNotFound         = errors.New("report not found")
	ErrStaleTurn              = errors.New("answer does not match the current question")
	ErrTemporarilyUnavailable = errors.New("question generation temporarily unavailable")
	ErrValidation             = errors.New("validation error")
)

// ValidationError carries the field-specific code of a rejected request.
type ValidationError struct {
	Response *models.ErrorResponse
}

func (e *ValidationError) Error() string {
	return e.Response.Detail
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Response
}

func validationError(err error) error {
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		return &ValidationError{Response: resp}
	}
	return &ValidationError{Response: &models.ErrorResponse{Code: "validation_error", Detail: err.Error()}}
}
