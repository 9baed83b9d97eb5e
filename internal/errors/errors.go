// Package errors provides the base error set shared by every domain package.
// Domain packages wrap one of these sentinels so transport adapters can map
// failures to status codes with Is, without knowing the domain error itself.
package errors

import (
	"errors"
	"fmt"
)

// Base domain errors.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller, or an identity acting for it, lacks a permission.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates a downstream dependency could not serve the request.
	// Errors wrapping it are safe to retry.
	ErrUnavailable = errors.New("unavailable")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Retryable reports whether err came from a dependency that may succeed on a later attempt.
func Retryable(err error) bool {
	return err != nil && errors.Is(err, ErrUnavailable)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is like Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
