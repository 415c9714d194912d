package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for propagation
// policy: validation and mode errors are never retried, external failures
// may be swallowed on best-effort rollback paths, timeouts mark abandoned
// waits.
type ErrorClass string

const (
	// ErrorClassValidation indicates missing or invalid caller-supplied
	// configuration. Detected before any external call; never retried.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassExternal indicates a delegated platform command or API
	// call failed.
	ErrorClassExternal ErrorClass = "external"

	// ErrorClassTimeout indicates a bounded wait elapsed before the
	// platform reached the expected state.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassInternal indicates a failure in this engine itself.
	ErrorClassInternal ErrorClass = "internal"
)

// Error represents a classified orchestration error with context.
type Error struct {
	// Class is the error classification for propagation policy.
	Class ErrorClass `json:"class"`

	// Code is an error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Command is the external command text, for command failures.
	Command string `json:"command,omitempty"`

	// ExitCode is the external command's exit code, for command failures.
	ExitCode int `json:"exit_code,omitempty"`

	// DeploymentID is the platform deployment this error relates to, if
	// applicable.
	DeploymentID string `json:"deployment_id,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Command != "" {
		msg = fmt.Sprintf("%s (command %q exited %d)", msg, e.Command, e.ExitCode)
	}
	if e.DeploymentID != "" {
		msg = fmt.Sprintf("%s (deployment=%s)", msg, e.DeploymentID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithDeployment adds the related deployment ID to an error.
func (e *Error) WithDeployment(id string) *Error {
	e.DeploymentID = id
	return e
}

// NewValidationError creates an error for missing or invalid caller
// configuration.
func NewValidationError(message string) *Error {
	return &Error{
		Class:   ErrorClassValidation,
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewUnsupportedModeError creates an error for an unknown enum value
// supplied by the caller. Always fatal, never retried.
func NewUnsupportedModeError(mode string) *Error {
	return &Error{
		Class:   ErrorClassValidation,
		Code:    ErrCodeUnsupportedMode,
		Message: fmt.Sprintf("unsupported mode %q", mode),
	}
}

// NewCommandError creates an error for a delegated command that exited
// non-zero. The message always includes the command text and exit code.
func NewCommandError(command string, exitCode int, err error) *Error {
	return &Error{
		Class:    ErrorClassExternal,
		Code:     ErrCodeCommandFailed,
		Message:  "external command failed",
		Command:  command,
		ExitCode: exitCode,
		Err:      err,
	}
}

// NewDeploymentFailedError creates an error for a deployment that reached
// a terminal state other than Succeeded, attaching the platform-reported
// message.
func NewDeploymentFailedError(id string, status DeploymentStatus, platformMessage string) *Error {
	msg := fmt.Sprintf("deployment finished %s", status)
	if platformMessage != "" {
		msg = fmt.Sprintf("%s: %s", msg, platformMessage)
	}
	return &Error{
		Class:        ErrorClassExternal,
		Code:         ErrCodeDeploymentFailed,
		Message:      msg,
		DeploymentID: id,
	}
}

// NewTimeoutError wraps a lapsed wait, keeping the waiter's error (and its
// label) in the chain.
func NewTimeoutError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassTimeout,
		Code:    ErrCodeTimeout,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates an error for a failure within the engine.
func NewInternalError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// IsValidation returns true if the error indicates a caller mistake.
func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassValidation
	}
	return false
}

// IsCommandFailure returns true if the error stems from a non-zero exit of
// a delegated command.
func IsCommandFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeCommandFailed
	}
	return false
}

// IsTimeout returns true if the error indicates a lapsed wait.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassTimeout
	}
	return false
}

// IsUnsupportedMode returns true if the error indicates an unknown mode
// value.
func IsUnsupportedMode(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeUnsupportedMode
	}
	return false
}

// Common error codes.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnsupportedMode  = "UNSUPPORTED_MODE"
	ErrCodeCommandFailed    = "COMMAND_FAILED"
	ErrCodeDeploymentFailed = "DEPLOYMENT_FAILED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternal         = "INTERNAL_ERROR"
)
