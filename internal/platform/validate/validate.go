// Package validate checks typed request structs at the transport boundary with go-playground
// validator, reporting JSON field names.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"attendance-ledger/backend/internal/platform/apperr"
)

// notBlankTag rejects strings that are empty after trimming.
const notBlankTag = "notblank"

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = val.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
	return val
}

// Struct validates s and returns an apperr.ErrInvalidInput naming the failing fields.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	sort.Strings(msgs)
	return apperr.Invalid(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", notBlankTag:
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " long"
	case "min":
		return field + " must have at least " + fe.Param()
	default:
		return field + " is invalid (" + fe.Tag() + ")"
	}
}
