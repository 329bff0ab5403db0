package fastlane

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("EXECUTE", ErrCodeInvalidParameters, "zero-length transfer")

	if err.Op != "EXECUTE" {
		t.Errorf("Expected Op=EXECUTE, got %s", err.Op)
	}

	if err.Code != ErrCodeInvalidParameters {
		t.Errorf("Expected Code=ErrCodeInvalidParameters, got %s", err.Code)
	}

	expected := "fastlane: zero-length transfer (op=EXECUTE)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ETIMEDOUT
	err := WrapError("EXECUTE", inner)

	if err.Code != ErrCodeTimeout {
		t.Errorf("Expected Code=ErrCodeTimeout, got %s", err.Code)
	}

	if err.Errno != syscall.ETIMEDOUT {
		t.Errorf("Expected Errno=ETIMEDOUT, got %v", err.Errno)
	}

	if !errors.Is(err, syscall.ETIMEDOUT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ETIMEDOUT")
	}
}

func TestWrapErrorPreservesStructured(t *testing.T) {
	inner := NewNamespaceError("READ", 9, ErrCodeTransport, "connection lost")
	err := WrapError("EXECUTE", inner)

	if err.Op != "EXECUTE" {
		t.Errorf("Expected outer Op=EXECUTE, got %s", err.Op)
	}
	if err.NamespaceID != 9 {
		t.Errorf("Expected NamespaceID preserved, got %d", err.NamespaceID)
	}
	if err.Code != ErrCodeTransport {
		t.Errorf("Expected Code preserved, got %s", err.Code)
	}
}

func TestRingSentinels(t *testing.T) {
	// Direct sentinel comparison
	if !errors.Is(ErrRingFull, ErrRingFull) {
		t.Error("ErrRingFull does not match itself")
	}

	// Code-based comparison across instances
	var err error = &Error{Op: "PUSH", Code: ErrCodeRingFull}
	if !errors.Is(err, ErrRingFull) {
		t.Error("Structured ring-full error does not match ErrRingFull")
	}
	if errors.Is(err, ErrRingEmpty) {
		t.Error("Ring-full error matches ErrRingEmpty")
	}

	// Wrapped sentinel still matches
	wrapped := fmt.Errorf("submit: %w", ErrRingFull)
	if !errors.Is(wrapped, ErrRingFull) {
		t.Error("Wrapped ErrRingFull does not match sentinel")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError("FLUSH", ErrCodeTimeout, "deadline exceeded"))

	if !IsCode(err, ErrCodeTimeout) {
		t.Error("IsCode failed to find ErrCodeTimeout through wrapping")
	}
	if IsCode(err, ErrCodeTransport) {
		t.Error("IsCode matched wrong code")
	}
	if IsCode(errors.New("plain"), ErrCodeTimeout) {
		t.Error("IsCode matched unstructured error")
	}
}

func TestReason(t *testing.T) {
	if got := Reason(ErrRingFull); got != string(ErrCodeRingFull) {
		t.Errorf("Reason(ErrRingFull)=%q", got)
	}
	if got := Reason(errors.New("boom")); got != "internal" {
		t.Errorf("Reason(plain)=%q, want internal", got)
	}
}
