package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gearguard.io/internal/apperr"
	"gearguard.io/internal/validate"
)

// bind decodes the JSON body into a T and validates it. Unknown fields are
// ignored. Type mismatches are reported on the offending field; anything
// that is not JSON at all is reported on "body".
func bind[T any](r *http.Request) (T, error) {
	var dst T
	if r.Body == nil {
		return dst, apperr.Invalid(apperr.FieldError{Field: "body", Message: "Request body is required"})
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&dst); err != nil {
		return dst, decodeError(err)
	}
	if fields := validate.Struct(&dst); len(fields) > 0 {
		return dst, apperr.Invalid(fields...)
	}
	return dst, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperr.Invalid(apperr.FieldError{
			Field:   field,
			Message: fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type.Kind().String()), typeErr.Value),
		})
	case errors.As(err, &maxErr):
		return apperr.Invalid(apperr.FieldError{Field: "body", Message: "Request body too large"})
	case errors.Is(err, io.EOF):
		return apperr.Invalid(apperr.FieldError{Field: "body", Message: "Request body is required"})
	default:
		return apperr.Invalid(apperr.FieldError{Field: "body", Message: "Malformed JSON"})
	}
}

// jsonKind names a Go kind the way a JSON client thinks of it.
func jsonKind(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "array"
	case "struct", "map":
		return "object"
	case "ptr":
		return "value"
	}
	return "number"
}
