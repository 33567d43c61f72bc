package errors

import (
	"fmt"
	"testing"
)

func TestDeckError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeSessionNotFound, "session not found")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeSessionNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("session", "agent-1").WithDetail("attached", 2)
	if detailed.Details["session"] != "agent-1" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test SessionNotFound
	err := SessionNotFound("agent-3")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}
	if err.Details["session"] != "agent-3" {
		t.Error("SessionNotFound should include session detail")
	}

	// Test PortConflict
	err = PortConflict(4310, fmt.Errorf("address already in use"))
	if err.Code != ErrCodePortConflict {
		t.Errorf("expected code %s, got %s", ErrCodePortConflict, err.Code)
	}
	if err.Details["port"] != 4310 {
		t.Error("PortConflict should include port detail")
	}

	// Test SessionNaming
	err = SessionNaming("agent", 3)
	if err.Code != ErrCodeSessionNaming {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNaming, err.Code)
	}
	if err.Details["attempts"] != 3 {
		t.Error("SessionNaming should include attempts detail")
	}
}
