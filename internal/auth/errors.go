package auth

import "gearguard.io/internal/apperr"

var (
	ErrAuthRequired       = apperr.New(apperr.Unauthenticated, "Authentication required")
	ErrTokenRejected      = apperr.New(apperr.InvalidToken, "Invalid token")
	ErrInvalidCredentials = apperr.New(apperr.InvalidCredentials, "Invalid email or password")
	ErrEmailTaken         = apperr.New(apperr.Conflict, "Email already registered")
	ErrGoogleDisabled     = apperr.New(apperr.OAuthNotConfigured, "Google sign-in is not configured")
	ErrMissingCredential  = apperr.New(apperr.MissingCredential, "Google credential is required")
	ErrNoEmailOnAccount   = apperr.New(apperr.NoEmailOnAccount, "Google account has no email")
	ErrIdentityRejected   = apperr.New(apperr.IdentityRejected, "Google credential rejected")
	ErrForbidden          = apperr.New(apperr.Forbidden, "Insufficient permissions")
)
