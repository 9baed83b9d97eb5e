// Package dto provides data transfer objects for the certificate event intake.
package dto

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	customValidation "github.com/SuYehTarn/jitr/internal/validation"
)

// CertificateEventRequest is a first-seen device certificate pushed by the
// device registry trigger.
type CertificateEventRequest struct {
	CertificatePEM string `json:"certificate_pem"`
	CAID           string `json:"ca_id,omitempty"`
	// ConnectionID identifies the connection attempt. Redeliveries of one
	// attempt share it.
	ConnectionID  string `json:"connection_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	// OCSPResponse is a base64 DER OCSP response stapled by the device.
	OCSPResponse string            `json:"ocsp_response,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
}

// Validate checks if the event request is valid.
func (r *CertificateEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CertificatePEM,
			validation.Required,
			customValidation.PEMCertificate,
		),
		validation.Field(&r.CAID,
			customValidation.NoWhitespace,
			validation.Length(0, 128),
		),
		validation.Field(&r.ConnectionID, validation.Length(0, 256)),
		validation.Field(&r.CorrelationID,
			customValidation.NoWhitespace,
			validation.Length(0, 256),
		),
		validation.Field(&r.OCSPResponse, customValidation.DERBase64),
	)
}

// ToEvent parses the certificate and maps the request to a pipeline event.
func (r *CertificateEventRequest) ToEvent(receivedAt time.Time) (*domain.Event, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(r.CertificatePEM)))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, apperrors.Wrap(domain.ErrInvalidEvent, "certificate_pem: must be a PEM encoded certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, apperrors.Wrapf(domain.ErrInvalidEvent, "certificate_pem: %v", err)
	}

	var ocsp []byte
	if r.OCSPResponse != "" {
		ocsp, err = base64.StdEncoding.DecodeString(r.OCSPResponse)
		if err != nil {
			return nil, apperrors.Wrap(domain.ErrInvalidEvent, "ocsp_response: must be valid base64-encoded data")
		}
	}

	correlationID := r.CorrelationID
	if correlationID == "" {
		correlationID = domain.CorrelationID(cert, r.ConnectionID)
	}

	return &domain.Event{
		CorrelationID:  correlationID,
		CAID:           r.CAID,
		Certificate:    cert,
		CertificatePEM: r.CertificatePEM,
		OCSPResponse:   ocsp,
		Context:        r.Context,
		ReceivedAt:     receivedAt,
	}, nil
}
