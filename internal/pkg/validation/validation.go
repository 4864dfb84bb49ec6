package validation

import (
	"regexp"

	"corebank/internal/pkg/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	return v
}

// Email validates an address and returns a field-scoped validation error.
func Email(field, value string) error {
	if err := validate.Var(value, "required,email"); err != nil {
		return apperrors.NewValidationError(field, "must be a valid email address")
	}
	return nil
}

// Phone accepts 10 to 15 digits with an optional leading plus sign.
func Phone(field, value string) error {
	if err := validate.Var(value, "required,phone"); err != nil {
		return apperrors.NewValidationError(field, "must be a valid phone number")
	}
	return nil
}

// Struct validates tagged struct fields and reports the first failure.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), "failed on rule '"+fe.Tag()+"'")
	}
	return apperrors.NewValidationError("", err.Error())
}
