package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "VM-VAR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Variable Errors (VAR)
// ============================================================================

var (
	// ErrVariableNotFound indicates the named variable is not registered.
	ErrVariableNotFound = NewDomainError("VM-VAR-4040", "variable not found")

	// ErrDuplicateVariable indicates the variable name is already registered.
	ErrDuplicateVariable = NewDomainError("VM-VAR-4090", "variable already registered")

	// ErrOverlappingRegion indicates the byte interval intersects an existing variable.
	ErrOverlappingRegion = NewDomainError("VM-VAR-4091", "variable region overlaps existing variable")

	// ErrInvalidRange indicates an access or registration outside the buffer bounds,
	// or a write whose length does not match the variable length.
	ErrInvalidRange = NewDomainError("VM-VAR-4000", "byte range out of bounds")
)

// ============================================================================
// Accessor Errors (ACC)
// ============================================================================

var (
	// ErrAccessorUnavailable indicates mapping or buffer initialization failed.
	ErrAccessorUnavailable = NewDomainError("VM-ACC-5000", "accessor unavailable")

	// ErrAccessorClosed indicates an operation on a released accessor.
	ErrAccessorClosed = NewDomainError("VM-ACC-4990", "accessor closed")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrPermissionDenied indicates the permission gate rejected the access.
	ErrPermissionDenied = NewDomainError("VM-AUTH-4030", "permission denied")

	// ErrNotAuthenticated indicates no authenticated tenant context exists.
	ErrNotAuthenticated = NewDomainError("VM-AUTH-4010", "not authenticated to tenant")
)

// ============================================================================
// Watcher Errors (WTCH)
// ============================================================================

var (
	// ErrWatcherStopped is the terminal signal a blocked consumer receives
	// after Stop. It marks orderly shutdown, not a failure.
	ErrWatcherStopped = NewDomainError("VM-WTCH-4990", "watcher stopped")

	// ErrWatcherNotRunning indicates a consume call before Start.
	ErrWatcherNotRunning = NewDomainError("VM-WTCH-4991", "watcher not running")
)

// ============================================================================
// Reconciliation Errors (SYNC)
// ============================================================================

var (
	// ErrReconcileConflict indicates an inbound delta referenced an
	// unregistered variable. The whole delta batch is rejected.
	ErrReconcileConflict = NewDomainError("VM-SYNC-4090", "delta references unregistered variable")

	// ErrSnapshotRejected indicates a full-state snapshot was delivered to a
	// virtual file that is not remote-backed.
	ErrSnapshotRejected = NewDomainError("VM-SYNC-4091", "snapshot only valid for remote accessors")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrConnectionLost indicates the transport connection dropped.
	ErrConnectionLost = NewDomainError("VM-CONN-5030", "connection lost")

	// ErrTimeout indicates a transport operation timed out.
	ErrTimeout = NewDomainError("VM-CONN-4080", "operation timeout")
)
