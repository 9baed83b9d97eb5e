package domain

import (
	"github.com/SuYehTarn/jitr/internal/errors"
)

var (
	// ErrRegistrationNotFound indicates no registration exists for the CA.
	ErrRegistrationNotFound = errors.Wrap(errors.ErrNotFound, "registration not found")

	// ErrInvalidTrustMaterial indicates the CA certificate is not a valid PEM X.509 certificate.
	ErrInvalidTrustMaterial = errors.Wrap(errors.ErrInvalidInput, "invalid trust material")

	// ErrPermissionDenied indicates the scoped identity may not perform a registry operation.
	// It is never retried.
	ErrPermissionDenied = errors.Wrap(errors.ErrForbidden, "permission denied")

	// ErrRegistryUnavailable indicates the device registry could not be reached.
	ErrRegistryUnavailable = errors.Wrap(errors.ErrUnavailable, "device registry unavailable")
)
