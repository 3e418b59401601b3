package admin

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/go-playground/errors/v5"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		c, err := timewindow.ParseClock(fl.Field().String())

		return err == nil && c.Valid()
	}); err != nil {
		panic(err)
	}

	return v
}

// validate checks s and reports the first failing field as a *autherr.ValidationError.
func (a *Admin) validate(s any) error {
	err := a.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validator.Validate.Struct()")
	}
	fe := fieldErrs[0]

	return &autherr.ValidationError{Field: fieldName(fe), Message: describe(fe)}
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "clock":
		return fmt.Sprintf("%q is not a valid HH:MM time", fe.Value())
	case "startswith":
		return fmt.Sprintf("page %q must start with %q", fe.Value(), fe.Param())
	case "eq":
		return fmt.Sprintf("page access must be %q", fe.Param())
	}

	return fmt.Sprintf("failed %q validation", fe.Tag())
}
