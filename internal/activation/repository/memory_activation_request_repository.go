package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
)

// MemoryActivationRequestRepository is the activation queue of the memory driver.
type MemoryActivationRequestRepository struct {
	mu       sync.Mutex
	requests map[string]domain.ActivationRequest
}

// NewMemoryActivationRequestRepository creates an empty MemoryActivationRequestRepository.
func NewMemoryActivationRequestRepository() *MemoryActivationRequestRepository {
	return &MemoryActivationRequestRepository{requests: make(map[string]domain.ActivationRequest)}
}

func (m *MemoryActivationRequestRepository) Create(ctx context.Context, request *domain.ActivationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[request.CorrelationID]; ok {
		return domain.ErrDuplicateActivation
	}

	stored := *request
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.requests[request.CorrelationID] = stored
	return nil
}

func (m *MemoryActivationRequestRepository) ExistsByCorrelationID(
	ctx context.Context,
	correlationID string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.requests[correlationID]
	return ok, nil
}

func (m *MemoryActivationRequestRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*domain.ActivationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*domain.ActivationRequest
	for _, request := range m.requests {
		if request.Status != domain.ActivationRequestStatusPending {
			continue
		}
		request := request
		pending = append(pending, &request)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *MemoryActivationRequestRepository) Update(ctx context.Context, request *domain.ActivationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.requests[request.CorrelationID]
	if !ok {
		return nil
	}
	stored.Status = request.Status
	stored.Retries = request.Retries
	stored.LastError = request.LastError
	stored.ProcessedAt = request.ProcessedAt
	stored.UpdatedAt = time.Now().UTC()
	m.requests[request.CorrelationID] = stored
	return nil
}

// All returns every stored request ordered by creation time.
func (m *MemoryActivationRequestRepository) All() []domain.ActivationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.ActivationRequest, 0, len(m.requests))
	for _, request := range m.requests {
		all = append(all, request)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all
}
