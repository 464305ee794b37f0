package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/osse101/mobilesync/internal/domain"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

// Global validator instance
var validate *Validator

// InitValidator initializes the global validator
func InitValidator() {
	v := validator.New()

	_ = v.RegisterValidation("strategy", validateStrategy)
	_ = v.RegisterValidation("resolution", validateResolution)

	validate = &Validator{validate: v}
}

// GetValidator returns the global validator instance
func GetValidator() *Validator {
	if validate == nil {
		InitValidator()
	}
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a user-friendly map
// keyed by lower-cased field name
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "strategy":
			errs[field] = "Unknown resolution strategy"
		case "resolution":
			errs[field] = "Must be one of client_wins, server_wins, merge"
		case "max":
			errs[field] = fmt.Sprintf("Must be at most %s", e.Param())
		case "min":
			errs[field] = fmt.Sprintf("Must be at least %s", e.Param())
		case "gt":
			errs[field] = fmt.Sprintf("Must be greater than %s", e.Param())
		case "len":
			errs[field] = fmt.Sprintf("Must be exactly %s characters", e.Param())
		case "hexadecimal":
			errs[field] = "Must be hexadecimal"
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

func validateStrategy(fl validator.FieldLevel) bool {
	return domain.Strategy(fl.Field().String()).Valid()
}

func validateResolution(fl validator.FieldLevel) bool {
	r := domain.Resolution(fl.Field().String())
	for _, opt := range domain.ResolutionOptions {
		if r == opt {
			return true
		}
	}
	return false
}
