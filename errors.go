// Package burnstone structured error types for stress-run failures
package burnstone

import (
	"fmt"
)

// ErrorKind represents categories of errors
type ErrorKind int

const (
	// Capability mismatch: a wide-vector algorithm on hardware without
	// the instruction set. Reported before any worker starts.
	KindCapability ErrorKind = iota
	// Affinity binding failures. Fatal to the affected worker.
	KindAffinity
	// Memory/allocation errors
	KindMemory
	// Validation errors: NaN or wrong lane value detected by a kernel
	KindValidation
	// Hardware/runtime faults caught at the kernel boundary
	KindFault
	// State errors: invalid configuration or run state
	KindState
)

// RunError represents a structured error with context
type RunError struct {
	Kind    ErrorKind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("burnstone %s error in %s: %s (caused by: %v)",
			e.Kind.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("burnstone %s error in %s: %s",
		e.Kind.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *RunError) Unwrap() error {
	return e.Err
}

// String returns the error kind as a string
func (k ErrorKind) String() string {
	switch k {
	case KindCapability:
		return "Capability"
	case KindAffinity:
		return "Affinity"
	case KindMemory:
		return "Memory"
	case KindValidation:
		return "Validation"
	case KindFault:
		return "Fault"
	case KindState:
		return "State"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewCapabilityError creates a capability-mismatch error
func NewCapabilityError(op string, message string) error {
	return &RunError{
		Kind:    KindCapability,
		Op:      op,
		Message: message,
	}
}

// NewAffinityError creates an affinity binding error
func NewAffinityError(op string, message string, err error) error {
	return &RunError{
		Kind:    KindAffinity,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &RunError{
		Kind:    KindMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error carrying the observed
// corruption details (thread index, expected vs. actual)
func NewValidationError(op string, message string) error {
	return &RunError{
		Kind:    KindValidation,
		Op:      op,
		Message: message,
	}
}

// NewFaultError creates an error for a hardware-level fault caught at
// the kernel boundary
func NewFaultError(op string, message string, err error) error {
	return &RunError{
		Kind:    KindFault,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewStateError creates an invalid state/configuration error
func NewStateError(op string, message string) error {
	return &RunError{
		Kind:    KindState,
		Op:      op,
		Message: message,
	}
}

// Common pre-defined errors

var (
	// ErrDoubleRelease indicates a second Release of an aligned buffer
	ErrDoubleRelease = NewMemoryError("Release", "buffer already released", nil)

	// ErrInvalidSize indicates an invalid buffer size parameter
	ErrInvalidSize = NewMemoryError("NewAlignedBuffer", "size must be positive", nil)

	// ErrInvalidRuntime indicates a non-positive per-cycle runtime
	ErrInvalidRuntime = NewStateError("RunConfig", "cycle seconds must be positive")
)

// IsKind checks whether an error is a RunError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	if e, ok := err.(*RunError); ok {
		return e.Kind == kind
	}
	return false
}

// IsCapabilityError checks if an error is a capability-mismatch error
func IsCapabilityError(err error) bool {
	return IsKind(err, KindCapability)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsKind(err, KindValidation)
}

// IsAffinityError checks if an error is an affinity binding error
func IsAffinityError(err error) bool {
	return IsKind(err, KindAffinity)
}
