// Package validate checks decoded request bodies against struct tags and
// renders failures as field errors keyed by JSON path.
//
// Tags understood beyond the validator/v10 built-ins:
//
//	notblank  string is present and not only whitespace
//	datestr   RFC 3339 date-time with offset, or a plain YYYY-MM-DD date
//
// A `msg` struct tag overrides the message for every failure on that field.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"gearguard.io/internal/apperr"
)

var (
	once   sync.Once
	engine *validator.Validate

	plainDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Engine returns the shared validator with custom rules registered.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("datestr", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		engine = v
	})
	return engine
}

// ParseDate accepts an RFC 3339 timestamp with offset or a YYYY-MM-DD date (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	if plainDate.MatchString(s) {
		return time.Parse(time.DateOnly, s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// Struct validates v (a pointer to a struct) and returns nil when it passes.
func Struct(v any) []apperr.FieldError {
	err := Engine().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperr.FieldError{{Field: "body", Message: err.Error()}}
	}

	root := reflect.TypeOf(v)
	for root.Kind() == reflect.Pointer {
		root = root.Elem()
	}

	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(root, fe),
		})
	}
	return out
}

// Namespace is "<StructName>.<json path>"; the struct name is dropped.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(root reflect.Type, fe validator.FieldError) string {
	if sf, ok := lookup(root, fe.StructNamespace()); ok {
		if m := sf.Tag.Get("msg"); m != "" {
			return m
		}
	}
	switch fe.Tag() {
	case "required":
		return "Required"
	case "oneof":
		return enumMessage(fe.Param(), fe.Value())
	case "email":
		return "Invalid email"
	case "datestr":
		return "Invalid date"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "notblank":
		return "Must not be empty"
	}
	return fmt.Sprintf("Failed on %s", fe.Tag())
}

func enumMessage(param string, value any) string {
	opts := strings.Fields(param)
	for i, o := range opts {
		opts[i] = "'" + o + "'"
	}
	got := reflect.ValueOf(value)
	for got.Kind() == reflect.Pointer && !got.IsNil() {
		got = got.Elem()
	}
	return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(opts, " | "), got.Interface())
}

// lookup walks a struct namespace ("Body.Field.Sub") down from root.
func lookup(root reflect.Type, ns string) (reflect.StructField, bool) {
	parts := strings.Split(ns, ".")
	if len(parts) < 2 {
		return reflect.StructField{}, false
	}
	t := root
	var sf reflect.StructField
	for _, name := range parts[1:] {
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return reflect.StructField{}, false
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return reflect.StructField{}, false
		}
		sf, t = f, f.Type
	}
	return sf, true
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
