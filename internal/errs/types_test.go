package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsDomain(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", NewNotFoundError("missing"), true},
		{"conflict", NewConflictError(CodeAlreadyFullyAllocated, "done", nil), true},
		{"wrapped validation", fmt.Errorf("ctx: %w", NewValidationError("bad")), true},
		{"external", NewExternalServiceError("plaid", "down", true, errors.New("503")), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		if got := IsDomain(tc.err); got != tc.want {
			t.Fatalf("%s: IsDomain = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDatabaseErrorUnwrap(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewDatabaseError("read", "failed to load account", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected DatabaseError to unwrap to cause")
	}
	if err.Operation != "read" {
		t.Fatalf("operation = %q", err.Operation)
	}
}
