package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatusTable(t *testing.T) {
	cases := map[Kind]int{
		Validation:         http.StatusBadRequest,
		Unauthenticated:    http.StatusUnauthorized,
		InvalidToken:       http.StatusUnauthorized,
		InvalidCredentials: http.StatusUnauthorized,
		Forbidden:          http.StatusForbidden,
		NotFound:           http.StatusNotFound,
		Conflict:           http.StatusConflict,
		OAuthNotConfigured: http.StatusServiceUnavailable,
		Internal:           http.StatusInternalServerError,
		Kind(999):          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Fatalf("%s: status %d, want %d", kind, got, want)
		}
	}
}

func TestKindOfFollowsWrapping(t *testing.T) {
	base := New(NotFound, "Equipment not found")
	wrapped := fmt.Errorf("load: %w", base)
	if got := KindOf(wrapped); got != NotFound {
		t.Fatalf("expected NotFound, got %s", got)
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("errors.Is should match the sentinel")
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("expected Internal for plain errors, got %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("token used too early")
	err := Wrap(IdentityRejected, "Google credential rejected", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if err.Error() != "Google credential rejected: token used too early" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
