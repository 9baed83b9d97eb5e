// Package usecase implements CA registration against the device registry.
package usecase

import (
	"context"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// RegistrationRepository persists registration records, one per CA id.
type RegistrationRepository interface {
	// Upsert creates the record or updates the existing one for the same CA id,
	// keeping its id and registration time.
	Upsert(ctx context.Context, r *domain.Registration) error
	GetByCAID(ctx context.Context, caID string) (*domain.Registration, error)
	GetByKeyID(ctx context.Context, keyID string) (*domain.Registration, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Registration, error)
}

// DeviceRegistry is the external registry CAs are registered with. Every
// call runs as identity and fails with ErrPermissionDenied when identity
// lacks the operation, or ErrRegistryUnavailable when the registry cannot
// be reached. All calls are idempotent on the registry side.
type DeviceRegistry interface {
	CreateRole(ctx context.Context, identity domain.ScopedIdentity) error
	AttachRolePolicy(ctx context.Context, identity domain.ScopedIdentity) error
	EnsureActivator(ctx context.Context, identity domain.ScopedIdentity, activator domain.Activator) error
	GetRegistrationCode(ctx context.Context, identity domain.ScopedIdentity) (string, error)
	RegisterCACertificate(
		ctx context.Context,
		identity domain.ScopedIdentity,
		tm *domain.TrustMaterial,
		registrationCode string,
	) (string, error)
	TagResource(ctx context.Context, identity domain.ScopedIdentity, resourceID string, tags map[string]string) error
	CreateTopicRule(ctx context.Context, identity domain.ScopedIdentity, rule domain.RoutingRule) error
}

// Vault archives CA trust material outside the database.
type Vault interface {
	Store(ctx context.Context, r *domain.Registration) error
}

// VerifierRegistry is the read side of the live verifier bindings.
type VerifierRegistry interface {
	List() []verifierDomain.Verifier
	Get(name string) (verifierDomain.Verifier, error)
}

// RegisterInput holds the arguments of a CA registration.
type RegisterInput struct {
	// CAID is optional. When empty the CA certificate fingerprint is used.
	CAID           string
	CertificatePEM string
	Verifiers      domain.VerifierSelection
}

// RegistrationUseCase defines CA registration operations.
type RegistrationUseCase interface {
	// Register registers the CA and binds the selected verifiers. Registering
	// the same CA again updates the existing record.
	Register(ctx context.Context, input RegisterInput) (*domain.Registration, error)
	// Get returns the registration of caID.
	Get(ctx context.Context, caID string) (*domain.Registration, error)
	// Resolve finds the registration of a device event's CA by CA id or, when
	// caID is empty, by the certificate's authority key id.
	Resolve(ctx context.Context, caID, keyID string) (*domain.Registration, error)
	// List returns registrations ordered by registration time.
	List(ctx context.Context, offset, limit int) ([]*domain.Registration, error)
}
