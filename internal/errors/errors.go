package errors

import (
	"errors"
	"fmt"
)

// Is, As and New re-export the standard helpers so callers need one import.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Sentinel errors for common failure conditions
var (
	// ErrInvalidInput indicates invalid user input or configuration
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy indicates a generation run is already in flight
	ErrBusy = errors.New("generation already in progress")
)

// ValidationError represents an input validation failure
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Invalid value
	Message string // Human-readable message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (value: %q)", e.Field, e.Message, e.Value)
}

// Is implements error comparison for errors.Is
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// TransportError is a failure talking to the model endpoint: a non-2xx
// status, a network failure or a response body that cannot be decoded.
// It ends the current generation run.
type TransportError struct {
	Op     string // Operation that failed
	Status int    // HTTP status, 0 when no response was received
	Err    error  // Underlying error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error
func NewTransportError(op string, status int, err error) *TransportError {
	return &TransportError{Op: op, Status: status, Err: err}
}

// IsTransport checks if an error came from the model transport
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by a TransportError, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// TransientError represents a temporary failure that can be retried
type TransientError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a new transient error
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsTransient checks if an error is transient and can be retried
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// PermanentError represents a non-recoverable failure
type PermanentError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error in %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new permanent error
func NewPermanentError(op string, err error) *PermanentError {
	return &PermanentError{Op: op, Err: err}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Append adds an error to the multi-error if it's non-nil
func (e *MultiError) Append(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// ErrorOrNil returns the MultiError if it has errors, otherwise nil
func (e *MultiError) ErrorOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
