// Package apperr defines the closed set of failure kinds surfaced to API
// clients and the single table that maps each kind to an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	Internal Kind = iota
	Validation
	MissingCredential
	NoEmailOnAccount
	Unauthenticated
	InvalidToken
	InvalidCredentials
	IdentityRejected
	Forbidden
	NotFound
	MethodNotAllowed
	Conflict
	OAuthNotConfigured
)

var kindNames = map[Kind]string{
	Internal:           "INTERNAL",
	Validation:         "VALIDATION",
	MissingCredential:  "MISSING_CREDENTIAL",
	NoEmailOnAccount:   "NO_EMAIL_ON_ACCOUNT",
	Unauthenticated:    "UNAUTHENTICATED",
	InvalidToken:       "INVALID_TOKEN",
	InvalidCredentials: "INVALID_CREDENTIALS",
	IdentityRejected:   "IDENTITY_REJECTED",
	Forbidden:          "FORBIDDEN",
	NotFound:           "NOT_FOUND",
	MethodNotAllowed:   "METHOD_NOT_ALLOWED",
	Conflict:           "CONFLICT",
	OAuthNotConfigured: "OAUTH_NOT_CONFIGURED",
}

var kindStatus = map[Kind]int{
	Internal:           http.StatusInternalServerError,
	Validation:         http.StatusBadRequest,
	MissingCredential:  http.StatusBadRequest,
	NoEmailOnAccount:   http.StatusBadRequest,
	Unauthenticated:    http.StatusUnauthorized,
	InvalidToken:       http.StatusUnauthorized,
	InvalidCredentials: http.StatusUnauthorized,
	IdentityRejected:   http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	MethodNotAllowed:   http.StatusMethodNotAllowed,
	Conflict:           http.StatusConflict,
	OAuthNotConfigured: http.StatusServiceUnavailable,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	if code, ok := kindStatus[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// FieldError pairs a dotted JSON path with a human readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause under kind with a client-facing message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Invalid builds a validation failure carrying per-field detail.
func Invalid(fields ...FieldError) *Error {
	return &Error{Kind: Validation, Message: "Validation failed", Fields: fields}
}

// KindOf reports the kind of the first classified error in err's chain.
// Unclassified errors are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
