// Package dto provides data transfer objects for the verifier endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/SuYehTarn/jitr/internal/validation"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// PutVerifierRequest creates or replaces a binding.
type PutVerifierRequest struct {
	Name       string `json:"name"`
	Reference  string `json:"reference"`
	Permission string `json:"permission,omitempty"`
}

// Validate checks if the put verifier request is valid.
func (r *PutVerifierRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NoWhitespace,
			customValidation.VerifierName,
		),
		validation.Field(&r.Reference,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 2048),
		),
		validation.Field(&r.Permission,
			validation.Length(0, 4096),
		),
	)
}

// ToReference maps the request to a domain reference.
func (r *PutVerifierRequest) ToReference() domain.Reference {
	return domain.Reference{Address: r.Reference, Permission: r.Permission}
}
