// Package params binds and validates JSON-RPC method parameters.
package params

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/huddlehq/huddle/internal/api/apierr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind unmarshals raw params into dest and runs struct validation.
// Failures come back as validation errors so the dispatch layer reports
// them as 400s.
func Bind(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return apierr.NewValidationError("missing params")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apierr.NewValidationError("invalid parameters format")
	}
	if err := validate.Struct(dest); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return apierr.NewValidationError("invalid field: %s", errs[0].Field())
		}
		return apierr.NewValidationError("invalid parameters")
	}
	return nil
}
