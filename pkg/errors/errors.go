// Package errors provides custom error types for the lotwatch system.
// Sentinel errors support errors.Is checks at call sites; the typed
// errors carry context for mapping failures onto the run taxonomy:
// upstream failures abort before any writes, persistence failures abort
// mid-run leaving partial state, conflicts reject a concurrent run.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is.
var Is = errors.Is

// As finds the first error in err's chain matching target.
// It's an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the lotwatch system
var (
	// ErrNotFound indicates that a requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRunning indicates a sync was requested while one is active
	ErrAlreadyRunning = errors.New("sync already running")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates the snapshot producer failed or returned
	// nothing usable
	ErrUpstream = errors.New("upstream failure")

	// ErrPersistence indicates the backing store failed mid-run
	ErrPersistence = errors.New("persistence failure")

	// ErrNotTrained indicates the price predictor has no trained model
	ErrNotTrained = errors.New("model not trained")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError represents a snapshot producer failure. A run aborted
// with an UpstreamError has written nothing.
type UpstreamError struct {
	Source string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("snapshot source %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(source, reason string, err error) *UpstreamError {
	return &UpstreamError{Source: source, Reason: reason, Err: err}
}

// PersistenceError represents a store failure mid-run. Writes applied
// before the failure remain in place; a later successful run corrects
// them through idempotent re-execution.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// ConflictError represents a run attempted while another is active
type ConflictError struct {
	Stage string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("sync already running (stage: %s)", e.Stage)
	}
	return "sync already running"
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error signals a concurrent run
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}

// IsUpstream checks if an error came from the snapshot producer
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsPersistence checks if an error came from the backing store
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
