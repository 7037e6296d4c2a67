package validation

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	// minEpochMs is 2000-01-01T00:00:00Z
	minEpochMs int64 = 946684800000
	// maxEpochMs is 9999-12-31T23:59:59Z
	maxEpochMs int64 = 253402300799000
)

// RegisterValidators registers custom validators
func RegisterValidators(v *validator.Validate) {
	v.RegisterValidation("epoch_ms", validateEpochMs)
}

// RegisterWithGin registers the custom validators on gin's binding engine
func RegisterWithGin() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidators(v)
	}
}

// validateEpochMs checks that a millisecond timestamp is in a plausible range
func validateEpochMs(fl validator.FieldLevel) bool {
	ms := fl.Field().Int()
	return ms >= minEpochMs && ms <= maxEpochMs
}

// ValidationError represents a validation error
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// FormatValidationError formats validation errors into a user-friendly response
func FormatValidationError(err error) []ValidationError {
	var result []ValidationError
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			result = append(result, ValidationError{
				Field: e.Field(),
				Tag:   e.Tag(),
				Value: e.Param(),
			})
		}
	}
	return result
}
