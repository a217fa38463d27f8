package mutation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports field constraint violations detected before any
// state change. Fields maps the JSON field name to an inline message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns the per-field messages.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

// Invalid builds a ValidationError for one field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// NewValidator returns a validator reporting JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Check validates a record's struct tags and converts failures to a
// ValidationError.
func Check(v *validator.Validate, rec any) error {
	if v == nil {
		return nil
	}
	err := v.Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

// CheckChange validates after but reports only violations on fields that
// differ from before, so a record the marketplace already holds in an
// invalid shape stays editable. Cross-field rules also count when the field
// they depend on changed.
func CheckChange(v *validator.Validate, before, after any) error {
	if v == nil {
		return nil
	}
	err := v.Struct(after)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	old, cur := structValue(before), structValue(after)
	out := &ValidationError{Fields: map[string]string{}}
	for _, fe := range fieldErrs {
		fields := []string{topField(fe.StructNamespace())}
		if params := strings.Fields(fe.Param()); crossFieldTags[fe.Tag()] && len(params) > 0 {
			fields = append(fields, params[0])
		}
		for _, name := range fields {
			if changed(old, cur, name) {
				out.Fields[fe.Field()] = describe(fe)
				break
			}
		}
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

var crossFieldTags = map[string]bool{
	"required_if": true, "required_unless": true, "required_with": true, "required_without": true,
	"excluded_if": true, "eqfield": true, "nefield": true,
	"gtfield": true, "gtefield": true, "ltfield": true, "ltefield": true,
}

// topField strips the type name and any nested path from a struct namespace
// such as "Order.Items[0].SKU".
func topField(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func structValue(rec any) reflect.Value {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv
}

func changed(before, after reflect.Value, name string) bool {
	if before.Kind() != reflect.Struct || after.Kind() != reflect.Struct || name == "" {
		return true
	}
	a, b := before.FieldByName(name), after.FieldByName(name)
	if !a.IsValid() || !b.IsValid() || !a.CanInterface() {
		return true
	}
	return !reflect.DeepEqual(a.Interface(), b.Interface())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "wajib diisi"
	case "gte", "min":
		return fmt.Sprintf("minimal %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("maksimal %s", fe.Param())
	case "gt":
		return fmt.Sprintf("harus lebih dari %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("harus salah satu dari: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alphanum":
		return "hanya huruf dan angka"
	default:
		return "tidak valid"
	}
}
