// Package dto provides data transfer objects for the CA registration endpoints.
package dto

import (
	"bytes"
	"encoding/json"
	"errors"

	validation "github.com/jellydator/validation"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/registration/usecase"
	customValidation "github.com/SuYehTarn/jitr/internal/validation"
)

// VerifierSelection accepts either the string "all" or an array of names.
// An absent or null field selects every registered verifier; an empty array
// binds none.
type VerifierSelection struct {
	All   bool
	Names []string
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VerifierSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		v.All, v.Names = true, nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var sentinel string
		if err := json.Unmarshal(data, &sentinel); err != nil {
			return err
		}
		if sentinel != customValidation.AllSentinel {
			return errors.New(`verifiers must be "all" or an array of names`)
		}
		v.All = true
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return errors.New(`verifiers must be "all" or an array of names`)
	}
	if names == nil {
		names = []string{}
	}
	v.Names = names
	return nil
}

// SelectsAll reports whether the selection binds every registered verifier.
func (v VerifierSelection) SelectsAll() bool {
	return v.All || v.Names == nil
}

// MarshalJSON implements json.Marshaler.
func (v VerifierSelection) MarshalJSON() ([]byte, error) {
	if v.SelectsAll() {
		return json.Marshal(customValidation.AllSentinel)
	}
	return json.Marshal(v.Names)
}

// RegisterCARequest registers a CA certificate and binds verifiers to it.
type RegisterCARequest struct {
	CAID          string            `json:"ca_id,omitempty"`
	CACertificate string            `json:"ca_certificate"`
	Verifiers     VerifierSelection `json:"verifiers"`
}

// Validate checks if the register request is valid.
func (r *RegisterCARequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CAID,
			customValidation.NoWhitespace,
			validation.Length(0, 128),
		),
		// Trust material format is checked by the use case so it surfaces as
		// an invalid trust material error.
		validation.Field(&r.CACertificate,
			validation.Required,
		),
		validation.Field(&r.Verifiers,
			validation.By(func(value interface{}) error {
				selection := value.(VerifierSelection)
				return validation.Validate(selection.Names, validation.Each(customValidation.VerifierName))
			}),
		),
	)
}

// ToInput maps the request to use case input.
func (r *RegisterCARequest) ToInput() usecase.RegisterInput {
	return usecase.RegisterInput{
		CAID:           r.CAID,
		CertificatePEM: r.CACertificate,
		Verifiers: domain.VerifierSelection{
			All:   r.Verifiers.SelectsAll(),
			Names: r.Verifiers.Names,
		},
	}
}
