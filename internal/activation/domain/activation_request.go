package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivationRequestStatus is the relay status of an activation request.
type ActivationRequestStatus string

const (
	ActivationRequestStatusPending   ActivationRequestStatus = "pending"
	ActivationRequestStatusPublished ActivationRequestStatus = "published"
	ActivationRequestStatusFailed    ActivationRequestStatus = "failed"
)

// ActivationRequest is a queued activation. CorrelationID is unique, so an
// event is dispatched at most once.
type ActivationRequest struct {
	ID            uuid.UUID
	CorrelationID string
	CAID          string
	DeviceID      string
	// Payload is the JSON encoded Message.
	Payload     string
	Status      ActivationRequestStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the scoped identity the activator provisions the device with.
type Identity struct {
	Name      string   `json:"name"`
	Reference string   `json:"reference"`
	Actions   []string `json:"actions"`
}

// Message is the body published to the activation queue.
type Message struct {
	CorrelationID        string    `json:"correlation_id"`
	CAID                 string    `json:"ca_id"`
	CACertificateID      string    `json:"ca_certificate_id"`
	DeviceID             string    `json:"device_id"`
	DeviceCertificatePEM string    `json:"device_certificate_pem"`
	Identity             Identity  `json:"identity"`
	Activator            string    `json:"activator,omitempty"`
	AcceptedAt           time.Time `json:"accepted_at"`
}
