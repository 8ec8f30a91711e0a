package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gearguard.io/internal/audit"
	"gearguard.io/internal/auth"
	"gearguard.io/internal/gear"
)

const (
	authHeader = "Authorization"
	bearer     = "bearer "
)

var errNoBearer = errors.New("missing bearer token")

// authenticate requires a valid bearer token and stores its claims in the
// request context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, auth.ErrAuthRequired)
			return
		}
		claims, err := a.auth.Codec().Verify(token)
		if err != nil {
			writeError(w, r, auth.ErrTokenRejected)
			return
		}
		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = audit.WithActor(ctx, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits only callers whose token carries one of roles.
func RequireRole(roles ...gear.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, r, auth.ErrAuthRequired)
				return
			}
			if !auth.HasRole(claims, roles...) {
				writeError(w, r, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// guard applies RequireRole only when role enforcement is switched on.
func (a *API) guard(h http.HandlerFunc, roles ...gear.Role) http.Handler {
	if !a.enforceRoles {
		return h
	}
	return RequireRole(roles...)(h)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errNoBearer
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}
