package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// MemoryRegistrationRepository keeps registrations in process for the memory driver.
type MemoryRegistrationRepository struct {
	mu            sync.RWMutex
	registrations map[string]domain.Registration
}

// NewMemoryRegistrationRepository creates an empty MemoryRegistrationRepository.
func NewMemoryRegistrationRepository() *MemoryRegistrationRepository {
	return &MemoryRegistrationRepository{registrations: make(map[string]domain.Registration)}
}

func clone(r domain.Registration) *domain.Registration {
	r.VerifierNames = append([]string{}, r.VerifierNames...)
	r.Identity.Actions = append([]string{}, r.Identity.Actions...)
	return &r
}

func (m *MemoryRegistrationRepository) Upsert(ctx context.Context, r *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *clone(*r)
	if existing, ok := m.registrations[r.CAID]; ok {
		stored.ID = existing.ID
		stored.RegisteredAt = existing.RegisteredAt
	}
	m.registrations[r.CAID] = stored
	return nil
}

func (m *MemoryRegistrationRepository) GetByCAID(ctx context.Context, caID string) (*domain.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.registrations[caID]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	return clone(r), nil
}

func (m *MemoryRegistrationRepository) GetByKeyID(ctx context.Context, keyID string) (*domain.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *domain.Registration
	for _, r := range m.registrations {
		if r.CAKeyID != keyID {
			continue
		}
		if found == nil || r.RegisteredAt.Before(found.RegisteredAt) {
			found = clone(r)
		}
	}
	if found == nil {
		return nil, domain.ErrRegistrationNotFound
	}
	return found, nil
}

func (m *MemoryRegistrationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.Registration, 0, len(m.registrations))
	for _, r := range m.registrations {
		all = append(all, clone(r))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].RegisteredAt.Equal(all[j].RegisteredAt) {
			return all[i].CAID < all[j].CAID
		}
		return all[i].RegisteredAt.Before(all[j].RegisteredAt)
	})

	if offset >= len(all) {
		return []*domain.Registration{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}
