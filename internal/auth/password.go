package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"gearguard.io/internal/apperr"
)

// bcrypt ignores input past 72 bytes, newer x/crypto refuses it outright.
const maxPasswordBytes = 72

var (
	errNoPasswordHash = errors.New("account has no password")

	// ErrPasswordTooLong is a client error, not an internal one.
	ErrPasswordTooLong = apperr.Invalid(apperr.FieldError{
		Field:   "password",
		Message: fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes),
	})
)

// timingPad is compared against when there is no stored hash, so a
// missing account costs one bcrypt comparison like a wrong password does.
var timingPad, _ = bcrypt.GenerateFromPassword([]byte("gearguard-timing-pad"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash stored for LOCAL users.
func HashPassword(plain string) (string, error) {
	switch {
	case plain == "":
		return "", errors.New("auth: empty password")
	case len(plain) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword returns nil when plain matches hash.
func VerifyPassword(hash, plain string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(timingPad, []byte(plain))
		return errNoPasswordHash
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
