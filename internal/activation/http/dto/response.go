package dto

import (
	"github.com/SuYehTarn/jitr/internal/activation/domain"
)

// OutcomeResponse is one verifier outcome.
type OutcomeResponse struct {
	Verifier   string `json:"verifier"`
	Result     string `json:"result"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ResolutionResponse is the terminal state of a certificate event.
type ResolutionResponse struct {
	CorrelationID string            `json:"correlation_id"`
	CAID          string            `json:"ca_id,omitempty"`
	State         string            `json:"state"`
	Reason        string            `json:"reason,omitempty"`
	Decision      string            `json:"decision,omitempty"`
	ActivationID  string            `json:"activation_id,omitempty"`
	Outcomes      []OutcomeResponse `json:"outcomes"`
}

// MapResolutionToResponse converts a resolution into its API response.
func MapResolutionToResponse(r *domain.Resolution) ResolutionResponse {
	outcomes := make([]OutcomeResponse, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, OutcomeResponse{
			Verifier:   o.Verifier,
			Result:     string(o.Result),
			Reason:     o.Reason,
			Detail:     o.Detail,
			DurationMS: o.Duration.Milliseconds(),
		})
	}

	return ResolutionResponse{
		CorrelationID: r.CorrelationID,
		CAID:          r.CAID,
		State:         string(r.State),
		Reason:        r.Reason,
		Decision:      string(r.Decision),
		ActivationID:  r.ActivationID,
		Outcomes:      outcomes,
	}
}
