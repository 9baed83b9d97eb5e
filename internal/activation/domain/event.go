// Package domain defines device certificate events, their verification
// outcomes, and the activation requests produced for accepted events.
package domain

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"time"
)

// Event is one first-seen device certificate reported by the device registry.
type Event struct {
	// CorrelationID identifies the event across redeliveries.
	CorrelationID string
	// CAID optionally names the registered CA. When empty the CA is found by
	// the certificate's authority key id.
	CAID           string
	Certificate    *x509.Certificate
	CertificatePEM string
	// OCSPResponse is an optional DER OCSP response stapled by the device.
	OCSPResponse []byte
	Context      map[string]string
	ReceivedAt   time.Time
}

// Fingerprint returns the hex SHA-256 of the device certificate.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// CorrelationID derives the correlation id of an event from the certificate
// fingerprint and the connection attempt id. Redeliveries of one attempt
// derive the same id.
func CorrelationID(cert *x509.Certificate, connectionID string) string {
	sum := sha256.Sum256([]byte(Fingerprint(cert) + "|" + connectionID))
	return hex.EncodeToString(sum[:])
}

// AuthorityKeyID returns the hex authority key id of the certificate.
func (e *Event) AuthorityKeyID() string {
	if e.Certificate == nil {
		return ""
	}
	return hex.EncodeToString(e.Certificate.AuthorityKeyId)
}
