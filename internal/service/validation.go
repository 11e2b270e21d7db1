package service

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// containsAt accepts any email containing "@".
var containsAt = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !strings.Contains(s, "@") {
		return errors.New("must be a valid email address")
	}
	return nil
})

// validationFailed converts ozzo validation errors into a 400 DomainError
// with one detail entry per offending field.
func validationFailed(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		return apperrors.NewValidationError("invalid input", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
