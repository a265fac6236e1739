package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_WrappedError(t *testing.T) {
	base := Rejected("directory.ListTeams", 404, "not found")
	wrapped := fmt.Errorf("load teams: %w", base)

	if got := KindOf(wrapped); got != ServerRejected {
		t.Fatalf("KindOf = %q, want %q", got, ServerRejected)
	}
	if !Is(wrapped, ServerRejected) {
		t.Error("Is(wrapped, ServerRejected) = false")
	}
	if Is(wrapped, NetworkFailure) {
		t.Error("Is(wrapped, NetworkFailure) = true")
	}
}

func TestKindOf_Foreign(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Errorf("KindOf(foreign) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
	if Is(nil, InvalidState) {
		t.Error("Is(nil, ...) should be false")
	}
}

func TestRejected_DefaultMessage(t *testing.T) {
	err := Rejected("op", 500, "  ")
	if err.Message != "request failed with status 500" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNetwork_Unwrap(t *testing.T) {
	err := Network("op", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the wrapped deadline error")
	}
}

func TestMessageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"taxonomy", Invalid("op", "Please enter a team name", nil), "Please enter a team name"},
		{"foreign", errors.New("plain"), "plain"},
		{"wrapped", fmt.Errorf("x: %w", State("op", "no active stream")), "no active stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageOf(tt.err); got != tt.want {
				t.Errorf("MessageOf = %q, want %q", got, tt.want)
			}
		})
	}
}
