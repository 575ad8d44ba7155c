package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing key.
	RedisNotFoundMessage = "redis key not found"
)

// Kind classifies an error for the turn boundary: validation problems become
// clarifying prompts, upstream problems become an apologetic message, policy
// violations become guidance messages.
type Kind string

const (
	KindInputValidation     Kind = "input_validation"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindPolicyViolation     Kind = "policy_violation"
	KindInternal            Kind = "internal"
)

// AppError wraps an underlying error with an HTTP status, a kind and a safe message.
type AppError struct {
	Err     error
	Status  int
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Kind:    KindInternal,
		Message: message,
	}
}

// Invalid builds an input-validation error.
func Invalid(message string) *AppError {
	return &AppError{
		Status:  http.StatusUnprocessableEntity,
		Kind:    KindInputValidation,
		Message: message,
	}
}

// Policy builds a policy-violation error.
func Policy(message string) *AppError {
	return &AppError{
		Status:  http.StatusUnprocessableEntity,
		Kind:    KindPolicyViolation,
		Message: message,
	}
}

// Upstream wraps a collaborator failure (language model, inventory store).
func Upstream(err error, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Kind:    KindUpstreamUnavailable,
		Message: message,
	}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
