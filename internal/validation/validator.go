// package validation provides helper functions for request data validation.
// It uses the go-playground/validator library and includes custom validation rules.
package validation

import (
	"fmt"
	"strings"

	"github.com/bnsite/eval-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// init registers custom validation rules with the validator instance.
func init() {
	// "gamemode" restricts a field to the fixed discipline set.
	err := validate.RegisterValidation("gamemode", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			// Empty strings are left to the 'required' tag.
			return true
		}

		return domain.GameMode(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register gamemode validation: %v", err))
	}

	// "consensus" restricts a field to the canonical consensus values.
	// The same set is used for review votes.
	err = validate.RegisterValidation("consensus", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}

		return domain.Consensus(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register consensus validation: %v", err))
	}
}

// ValidationError is a custom error type that holds a slice of validation error messages.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct performs validation on a given struct based on its validation tags.
// If validation fails, it returns a *ValidationError with user-friendly messages.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors []string

		for _, err := range err.(validator.ValidationErrors) {
			var message string

			switch err.Tag() {
			case "gamemode":
				message = fmt.Sprintf(
					"field '%s' must be one of: osu, taiko, catch, mania",
					err.Field(),
				)
			case "consensus":
				message = fmt.Sprintf(
					"field '%s' must be one of: pass, extend, fail",
					err.Field(),
				)
			default:
				message = fmt.Sprintf(
					"field '%s' failed on the '%s' tag",
					err.Field(),
					err.Tag(),
				)
			}
			validationErrors = append(validationErrors, message)
		}

		return &ValidationError{Errors: validationErrors}
	}

	return nil
}
