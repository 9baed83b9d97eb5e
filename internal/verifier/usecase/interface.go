// Package usecase implements verifier binding management on top of the
// in-memory registry and its persistent store.
package usecase

import (
	"context"
	"time"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// VerifierRepository persists bindings across restarts. It is the source of
// truth shared by every process using the same database; the registry is a
// per-process copy of it.
type VerifierRepository interface {
	// Upsert stores the binding and clears any tombstone left by Delete.
	Upsert(ctx context.Context, v *domain.Verifier) error
	List(ctx context.Context) ([]*domain.Verifier, error)
	// Delete removes the binding and records a tombstone for name.
	Delete(ctx context.Context, name string) error
	// ListDeleted returns the tombstoned names.
	ListDeleted(ctx context.Context) ([]string, error)
}

// Registry is the live binding set read by registration and the pipeline.
type Registry interface {
	List() []domain.Verifier
	Get(name string) (domain.Verifier, error)
	Put(v domain.Verifier) error
	Delete(name string)
	Replace(vs []domain.Verifier)
}

// Resolver checks that a reference points at an invocable capability.
type Resolver interface {
	Resolve(ref domain.Reference) error
}

// VerifierUseCase defines verifier registry operations.
type VerifierUseCase interface {
	// List returns all bindings ordered by name.
	List(ctx context.Context) ([]*domain.Verifier, error)
	// Get returns the binding for name or ErrVerifierNotFound.
	Get(ctx context.Context, name string) (*domain.Verifier, error)
	// Put creates or replaces a binding.
	Put(ctx context.Context, name string, ref domain.Reference) (*domain.Verifier, error)
	// Delete removes a binding. Deleting an absent name succeeds.
	Delete(ctx context.Context, name string) error
	// Load fills the registry from the store, then binds every seed whose name
	// is neither stored nor tombstoned by an earlier Delete.
	Load(ctx context.Context, seeds []*domain.Verifier) error
	// Refresh replaces the registry with the bindings currently in the store.
	Refresh(ctx context.Context) error
	// Watch calls Refresh every interval until ctx is done. Refresh failures
	// are logged and the previous registry content is kept.
	Watch(ctx context.Context, interval time.Duration) error
}
