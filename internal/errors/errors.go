// LOCATION: internal/errors/errors.go
// VERSION: 2.0 - Consolidated error definitions for the entire project
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - Contextual constructors for parse failures

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Format detection and framing errors
	ErrUnrecognizedFormat = errors.New("unrecognized event format")
	ErrCorruptHeader      = errors.New("corrupt stream header")
	ErrCorruptRecord      = errors.New("corrupt record")
	ErrInvalidUnits       = errors.New("invalid unit declaration")

	// Graph construction errors
	ErrInvalidGraphLink = errors.New("invalid graph link")
	ErrCyclicGraph      = errors.New("event graph contains a cycle")
	ErrInconsistentLink = errors.New("particle/vertex links are inconsistent")

	// Attribute errors
	ErrUnsupportedAttribute = errors.New("unsupported attribute type")

	// Capability errors
	ErrUnsupportedOperation   = errors.New("unsupported operation")
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// Stream errors
	ErrStream = errors.New("stream I/O error")
	ErrClosed = errors.New("stream is closed")

	// Lookup / validation errors
	ErrNotFound      = errors.New("not found")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsCorruption returns true if err indicates malformed input data.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptHeader) ||
		errors.Is(err, ErrCorruptRecord) ||
		errors.Is(err, ErrInvalidUnits)
}

// IsFatal returns true if err aborts the whole stream. Corrupt records
// are per-record recoverable; header corruption, unknown formats, and
// underlying I/O failures are not.
func IsFatal(err error) bool {
	if errors.Is(err, ErrCorruptRecord) {
		return false
	}
	return errors.Is(err, ErrCorruptHeader) ||
		errors.Is(err, ErrUnrecognizedFormat) ||
		errors.Is(err, ErrStream) ||
		errors.Is(err, ErrClosed)
}

// IsGraphError returns true if err is a graph construction error.
func IsGraphError(err error) bool {
	return errors.Is(err, ErrInvalidGraphLink) ||
		errors.Is(err, ErrCyclicGraph) ||
		errors.Is(err, ErrInconsistentLink)
}

// IsUnsupported returns true if err is a capability error.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, ErrUnsupportedCompression) ||
		errors.Is(err, ErrUnsupportedAttribute)
}

// IsValidation returns true if err is a configuration/validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewCorruptRecord creates a recoverable per-record parse error carrying
// the 1-based line number where the corruption was found.
func NewCorruptRecord(line int, reason string) error {
	return fmt.Errorf("line %d: %s: %w", line, reason, ErrCorruptRecord)
}

// NewCorruptHeader creates a fatal header parse error.
func NewCorruptHeader(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrCorruptHeader)
}

// NewInvalidLink creates a graph-link error with the offending ids.
func NewInvalidLink(particleID, vertexID int, reason string) error {
	return fmt.Errorf("particle %d / vertex %d: %s: %w", particleID, vertexID, reason, ErrInvalidGraphLink)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
