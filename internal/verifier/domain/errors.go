package domain

import (
	"github.com/SuYehTarn/jitr/internal/errors"
)

var (
	// ErrVerifierNotFound indicates no binding exists under the given name.
	ErrVerifierNotFound = errors.Wrap(errors.ErrNotFound, "verifier not found")

	// ErrInvalidVerifierName indicates an empty or malformed binding name.
	ErrInvalidVerifierName = errors.Wrap(errors.ErrInvalidInput, "invalid verifier name")

	// ErrUnresolvableReference indicates the reference does not point at an invocable capability.
	ErrUnresolvableReference = errors.Wrap(errors.ErrInvalidInput, "verifier reference is not resolvable")

	// ErrUnknownVerifier indicates a registration named a verifier absent from the registry.
	ErrUnknownVerifier = errors.Wrap(errors.ErrInvalidInput, "unknown verifier")

	// ErrMissingEvidence indicates the request lacks material a builtin verifier needs.
	ErrMissingEvidence = errors.New("verification evidence missing")
)
