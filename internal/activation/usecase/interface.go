// Package usecase implements the certificate event pipeline and the relay
// that moves accepted activations onto the activation queue.
package usecase

import (
	"context"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	registrationDomain "github.com/SuYehTarn/jitr/internal/registration/domain"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// ActivationRequestRepository is the durable activation queue.
type ActivationRequestRepository interface {
	// Create enqueues the request. It returns ErrDuplicateActivation when a
	// request with the same correlation id exists.
	Create(ctx context.Context, r *domain.ActivationRequest) error
	ExistsByCorrelationID(ctx context.Context, correlationID string) (bool, error)
	// GetPending claims up to limit pending requests, oldest first.
	GetPending(ctx context.Context, limit int) ([]*domain.ActivationRequest, error)
	Update(ctx context.Context, r *domain.ActivationRequest) error
}

// RegistrationResolver finds the registration owning an event.
type RegistrationResolver interface {
	Resolve(ctx context.Context, caID, keyID string) (*registrationDomain.Registration, error)
}

// VerifierRegistry resolves bound verifier names to references.
type VerifierRegistry interface {
	Get(name string) (verifierDomain.Verifier, error)
}

// Invoker calls a verifier capability.
type Invoker interface {
	Invoke(ctx context.Context, ref verifierDomain.Reference, req *verifierDomain.Request) (bool, error)
}

// Publisher hands an activation request to the activation queue.
type Publisher interface {
	Publish(ctx context.Context, r *domain.ActivationRequest) error
}

// PipelineUseCase resolves certificate events.
type PipelineUseCase interface {
	// Process drives the event to a terminal state. An error is returned only
	// when the event could not be looked up at all; the caller may redeliver.
	Process(ctx context.Context, event *domain.Event) (*domain.Resolution, error)
}

// RelayUseCase publishes queued activation requests.
type RelayUseCase interface {
	Start(ctx context.Context) error
	ProcessRequests(ctx context.Context) error
}
