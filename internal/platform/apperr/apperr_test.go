package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Invalid("bad"), http.StatusBadRequest},
		{UnsupportedMedia("json only"), http.StatusUnsupportedMediaType},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.Kind.Status(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.err.Kind, tt.want, got)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("loading client: %w", NotFound("Client not found"))
	if KindOf(err) != KindNotFound {
		t.Errorf("expected not_found, got %s", KindOf(err))
	}
	if !Is(err, KindNotFound) {
		t.Error("expected Is to match wrapped kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("expected unclassified errors to be internal")
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to save", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "failed to save: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
