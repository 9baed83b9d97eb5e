package domain

import (
	"github.com/SuYehTarn/jitr/internal/errors"
)

var (
	// ErrDuplicateActivation indicates an activation request already exists for the correlation id.
	ErrDuplicateActivation = errors.Wrap(errors.ErrConflict, "activation already dispatched")

	// ErrInvalidEvent indicates a certificate event that cannot be processed.
	ErrInvalidEvent = errors.Wrap(errors.ErrInvalidInput, "invalid certificate event")
)
