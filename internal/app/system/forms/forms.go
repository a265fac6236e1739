// Package forms normalizes user-entered text and checks write inputs
// locally, so a ValidationFailure never reaches the directory client.
package forms

import (
	"errors"
	"html"
	"reflect"
	"strings"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate = newValidator()
	strict   = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Clean strips markup and surrounding whitespace from a display value
// such as a name or location. Entities are decoded before sanitizing so
// entity-encoded tags are stripped too; the final decode only turns the
// policy's own escapes back into text.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(html.UnescapeString(s))))
}

// CleanEmail trims and lowercases an email address.
func CleanEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks v against its `validate` tags. Failures are returned as a
// ValidationFailure whose Fields map is keyed by JSON field name. Messages
// come from the field's `msg_<tag>` tag, then its `msg` tag.
func Validate(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid(op, "the form could not be checked", nil)
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		msg := fieldMessage(t, fe)
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = msg
		}
		if first == "" {
			first = msg
		}
	}
	return apperr.Invalid(op, first, fields)
}

func fieldMessage(t reflect.Type, fe validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if m := sf.Tag.Get("msg_" + fe.Tag()); m != "" {
				return m
			}
			if m := sf.Tag.Get("msg"); m != "" {
				return m
			}
		}
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Please enter a valid email address."
	case "max":
		return fe.Field() + " is too long"
	}
	return fe.Field() + " is invalid"
}
