// Package domain defines the verifier binding model: named references to
// capabilities that vote on whether a device certificate may be activated.
package domain

import (
	"crypto/x509"
	"strings"
	"time"
)

// Reference schemes understood by the invoker.
const (
	SchemeHTTP    = "http"
	SchemeHTTPS   = "https"
	SchemeBuiltin = "builtin"
)

// Reference locates an invocable verifier capability and carries the
// permission needed to call it.
type Reference struct {
	// Address is either an http(s) URL or "builtin:<name>".
	Address string
	// Permission is an opaque grant presented on invocation. Optional.
	Permission string
}

// Scheme returns the lowercased scheme of the address, or "" when absent.
func (r Reference) Scheme() string {
	i := strings.Index(r.Address, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(r.Address[:i])
}

// Verifier is a named binding in the registry.
type Verifier struct {
	Name      string
	Reference Reference
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Request is the input handed to every verifier for one certificate event.
type Request struct {
	// CorrelationID identifies the event across redeliveries.
	CorrelationID string
	// CAID is the identifier of the registered CA that issued the certificate.
	CAID string
	// Certificate is the parsed device certificate.
	Certificate *x509.Certificate
	// CertificatePEM is the device certificate as received.
	CertificatePEM string
	// CACertificate is the registered CA certificate, when known.
	CACertificate *x509.Certificate
	// OCSPResponse is a DER encoded OCSP response stapled to the event.
	OCSPResponse []byte
	// Context holds event attributes such as client id or source address.
	Context map[string]string
}
