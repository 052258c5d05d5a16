package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/msomdec/shelfly/internal/domain"
)

const minPasswordLength = 6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return domain.ValidEmail(fl.Field().String())
	})
	// Rejects ±Inf and NaN.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

// validateInput runs struct validation and reports the first failure as
// domain.ErrInvalidInput.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, describe(fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gte":
		return fe.Field() + " must not be negative"
	case "finite":
		return fe.Field() + " must be a finite number"
	case "email_shape":
		return "invalid email format"
	default:
		return fe.Field() + " is invalid"
	}
}
