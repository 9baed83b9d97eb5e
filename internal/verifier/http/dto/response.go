package dto

import (
	"time"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// VerifierResponse is a binding as returned by the API. The permission is
// never echoed back.
type VerifierResponse struct {
	Name          string    `json:"name"`
	Reference     string    `json:"reference"`
	HasPermission bool      `json:"has_permission"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListVerifiersResponse wraps the ordered binding list.
type ListVerifiersResponse struct {
	Data []VerifierResponse `json:"data"`
}

// MapVerifierToResponse converts a domain binding to its API form.
func MapVerifierToResponse(v *domain.Verifier) VerifierResponse {
	return VerifierResponse{
		Name:          v.Name,
		Reference:     v.Reference.Address,
		HasPermission: v.Reference.Permission != "",
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

// MapVerifiersToListResponse converts the ordered binding list.
func MapVerifiersToListResponse(verifiers []*domain.Verifier) ListVerifiersResponse {
	data := make([]VerifierResponse, 0, len(verifiers))
	for _, v := range verifiers {
		data = append(data, MapVerifierToResponse(v))
	}
	return ListVerifiersResponse{Data: data}
}
