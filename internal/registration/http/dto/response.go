package dto

import (
	"time"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// IdentityResponse describes the scoped execution identity of a registration.
type IdentityResponse struct {
	Name      string   `json:"name"`
	Reference string   `json:"reference"`
	Actions   []string `json:"actions"`
}

// RegistrationResponse is a registration record summary.
type RegistrationResponse struct {
	ID              string           `json:"id"`
	CAID            string           `json:"ca_id"`
	CACertificateID string           `json:"ca_certificate_id"`
	Identity        IdentityResponse `json:"identity"`
	Verifiers       []string         `json:"verifiers"`
	RegisteredAt    time.Time        `json:"registered_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ListRegistrationsResponse wraps a page of registrations.
type ListRegistrationsResponse struct {
	Data []RegistrationResponse `json:"data"`
}

// MapRegistrationToResponse converts a registration to its API form.
func MapRegistrationToResponse(r *domain.Registration) RegistrationResponse {
	verifiers := r.VerifierNames
	if verifiers == nil {
		verifiers = []string{}
	}
	return RegistrationResponse{
		ID:              r.ID.String(),
		CAID:            r.CAID,
		CACertificateID: r.CACertificateID,
		Identity: IdentityResponse{
			Name:      r.Identity.Name,
			Reference: r.Identity.Reference,
			Actions:   r.Identity.Actions,
		},
		Verifiers:    verifiers,
		RegisteredAt: r.RegisteredAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// MapRegistrationsToListResponse converts a page of registrations.
func MapRegistrationsToListResponse(registrations []*domain.Registration) ListRegistrationsResponse {
	data := make([]RegistrationResponse, 0, len(registrations))
	for _, r := range registrations {
		data = append(data, MapRegistrationToResponse(r))
	}
	return ListRegistrationsResponse{Data: data}
}
