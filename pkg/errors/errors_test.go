package errors

import (
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("vehicle", "5YJ3E1EA7KF000001")

	want := "vehicle 5YJ3E1EA7KF000001 not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrNotFound) {
		t.Error("expected errors.Is match against ErrNotFound")
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to report true")
	}
	if IsNotFound(New("other")) {
		t.Error("expected IsNotFound false for unrelated error")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("year_min", "must be an integer")

	want := "validation failed for year_min: must be an integer"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("expected errors.Is match against ErrInvalidInput")
	}

	bare := &ValidationError{Message: "empty snapshot"}
	if bare.Error() != "validation failed: empty snapshot" {
		t.Errorf("unexpected message without field: %q", bare.Error())
	}
}

func TestUpstreamError(t *testing.T) {
	cause := New("connection refused")
	err := NewUpstreamError("dealer-feed", "fetch failed", cause)

	if !Is(err, ErrUpstream) {
		t.Error("expected errors.Is match against ErrUpstream")
	}
	if !Is(err, cause) {
		t.Error("expected unwrap chain to reach the cause")
	}
	if !IsUpstream(err) {
		t.Error("expected IsUpstream to report true")
	}

	noCause := NewUpstreamError("dealer-feed", "empty snapshot", nil)
	want := "snapshot source dealer-feed: empty snapshot"
	if noCause.Error() != want {
		t.Errorf("Error() = %q, want %q", noCause.Error(), want)
	}
}

func TestPersistenceError(t *testing.T) {
	cause := New("disk full")
	err := NewPersistenceError("put vehicle", cause)

	if !Is(err, ErrPersistence) {
		t.Error("expected errors.Is match against ErrPersistence")
	}
	if !Is(err, cause) {
		t.Error("expected unwrap chain to reach the cause")
	}
	if !IsPersistence(err) {
		t.Error("expected IsPersistence to report true")
	}
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{Stage: "syncing"}

	want := "sync already running (stage: syncing)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsConflict(err) {
		t.Error("expected IsConflict to report true")
	}
	if !Is(err, ErrAlreadyRunning) {
		t.Error("expected errors.Is match against ErrAlreadyRunning")
	}
}

func TestWrappedSentinelsSurviveFmtErrorf(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewUpstreamError("http", "status 502", nil))

	if !IsUpstream(err) {
		t.Error("expected IsUpstream through fmt.Errorf wrapping")
	}
	if IsConflict(err) {
		t.Error("expected IsConflict false for upstream error")
	}
}
