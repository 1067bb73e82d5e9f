package validators

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// phonePattern accepts local (07xxxxxxxx) and international (+2507xxxxxxxx)
// mobile numbers.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

var validate = func() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so details match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "", "-":
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}()

// ruleMessages renders a failed tag; "%s" receives the tag parameter.
var ruleMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"email":    "must be a valid email",
	"phone":    "must be a valid mobile number",
	"oneof":    "must be one of %s",
	"datetime": "must match %s",
}

func fieldMessage(fe validator.FieldError) string {
	format, ok := ruleMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(format, "%s") {
		return strings.Replace(format, "%s", fe.Param(), 1)
	}
	return format
}

// checkStruct runs the validate tags on dest and maps failures to a field
// keyed validation error.
func checkStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(pkgerrors.FieldErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}
