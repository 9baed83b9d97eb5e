package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// MemoryVerifierRepository keeps bindings in process for the memory driver.
type MemoryVerifierRepository struct {
	mu         sync.Mutex
	verifiers  map[string]domain.Verifier
	tombstones map[string]struct{}
}

// NewMemoryVerifierRepository creates an empty MemoryVerifierRepository.
func NewMemoryVerifierRepository() *MemoryVerifierRepository {
	return &MemoryVerifierRepository{
		verifiers:  make(map[string]domain.Verifier),
		tombstones: make(map[string]struct{}),
	}
}

func (m *MemoryVerifierRepository) Upsert(ctx context.Context, v *domain.Verifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *v
	if existing, ok := m.verifiers[v.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	m.verifiers[v.Name] = stored
	delete(m.tombstones, v.Name)
	return nil
}

func (m *MemoryVerifierRepository) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.verifiers[name]
	if !ok {
		return nil, domain.ErrVerifierNotFound
	}
	return &v, nil
}

func (m *MemoryVerifierRepository) List(ctx context.Context) ([]*domain.Verifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	verifiers := make([]*domain.Verifier, 0, len(m.verifiers))
	for _, v := range m.verifiers {
		v := v
		verifiers = append(verifiers, &v)
	}
	sort.Slice(verifiers, func(i, j int) bool { return verifiers[i].Name < verifiers[j].Name })
	return verifiers, nil
}

func (m *MemoryVerifierRepository) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.verifiers, name)
	m.tombstones[name] = struct{}{}
	return nil
}

func (m *MemoryVerifierRepository) ListDeleted(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.tombstones))
	for name := range m.tombstones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
