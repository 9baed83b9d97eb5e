// Package domain defines CA registrations: the record binding a CA
// certificate to a snapshot of verifier names and a scoped execution
// identity.
package domain

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operations a scoped identity may perform. The set is closed: an identity
// never carries anything outside of it.
const (
	ActionCreateFunction        = "lambda:CreateFunction"
	ActionPassRole              = "iam:PassRole"
	ActionRegisterCACertificate = "iot:RegisterCACertificate"
	ActionTagResource           = "iot:TagResource"
	ActionGetRegistrationCode   = "iot:GetRegistrationCode"
	ActionCreateRole            = "iam:CreateRole"
	ActionAttachRolePolicy      = "iam:AttachRolePolicy"
	ActionCreateTopicRule       = "iot:CreateTopicRule"
)

// VerifiersTag is the resource tag listing the verifier names bound to a CA.
const VerifiersTag = "jitr:verifiers"

// ScopedActions returns the exact operation set granted to a scoped identity.
func ScopedActions() []string {
	return []string{
		ActionCreateFunction,
		ActionPassRole,
		ActionRegisterCACertificate,
		ActionTagResource,
		ActionGetRegistrationCode,
		ActionCreateRole,
		ActionAttachRolePolicy,
		ActionCreateTopicRule,
	}
}

// IsScopedAction reports whether action belongs to the scoped operation set.
func IsScopedAction(action string) bool {
	for _, a := range ScopedActions() {
		if a == action {
			return true
		}
	}
	return false
}

// ScopedIdentity is the execution identity registration runs under.
type ScopedIdentity struct {
	Name      string
	Reference string
	Actions   []string
}

// CASuffix is the per-CA component of provider resource names: the first 16
// hex digits of the SHA-256 of the whole CA id. It fits every provider name
// charset and length limit, and distinct CA ids never share it in practice.
func CASuffix(caID string) string {
	sum := sha256.Sum256([]byte(caID))
	return hex.EncodeToString(sum[:8])
}

// NewScopedIdentity derives the identity for a CA from the configured base
// reference.
func NewScopedIdentity(caID, baseReference string) ScopedIdentity {
	name := "jitr-activator-" + CASuffix(caID)

	reference := name
	if baseReference != "" {
		reference = strings.TrimRight(baseReference, "/") + "/" + name
	}

	return ScopedIdentity{Name: name, Reference: reference, Actions: ScopedActions()}
}

// Allows reports whether the identity was granted action.
func (s ScopedIdentity) Allows(action string) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Activator describes the activation capability provisioned for a CA.
type Activator struct {
	Address       string
	RoleReference string
	QueueURL      string
}

// RoutingRule forwards device certificate events of one CA to the pipeline.
type RoutingRule struct {
	Name            string
	CACertificateID string
	Target          string
}

// NewRoutingRule builds the routing rule for a registered CA certificate.
func NewRoutingRule(caID, certificateID, target string) RoutingRule {
	return RoutingRule{Name: "jitr_" + CASuffix(caID), CACertificateID: certificateID, Target: target}
}

// VerifierSelection is either the "all" sentinel or an explicit list of names.
type VerifierSelection struct {
	All   bool
	Names []string
}

// Registration is the stored outcome of registering a CA.
type Registration struct {
	ID               uuid.UUID
	CAID             string
	CAKeyID          string
	CACertificateID  string
	CACertificatePEM string
	RegistrationCode string
	Identity         ScopedIdentity
	VerifierNames    []string
	RegisteredAt     time.Time
	UpdatedAt        time.Time
}

// Certificate parses the stored CA certificate.
func (r *Registration) Certificate() (*x509.Certificate, error) {
	tm, err := ParseTrustMaterial(r.CACertificatePEM)
	if err != nil {
		return nil, err
	}
	return tm.Certificate, nil
}

// TrustMaterial is a parsed CA certificate as supplied by the caller.
type TrustMaterial struct {
	Certificate *x509.Certificate
	PEM         string
	// Fingerprint is the hex SHA-256 of the DER certificate.
	Fingerprint string
	// KeyID is the hex subject key identifier, matched against the authority
	// key identifier of device certificates.
	KeyID string
}

// ParseTrustMaterial checks that pemText holds an X.509 certificate. Only the
// format is checked, not the chain or the CA constraints.
func ParseTrustMaterial(pemText string) (*TrustMaterial, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemText)))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrInvalidTrustMaterial
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, ErrInvalidTrustMaterial
	}

	sum := sha256.Sum256(cert.Raw)
	return &TrustMaterial{
		Certificate: cert,
		PEM:         string(pem.EncodeToMemory(block)),
		Fingerprint: hex.EncodeToString(sum[:]),
		KeyID:       hex.EncodeToString(cert.SubjectKeyId),
	}, nil
}
