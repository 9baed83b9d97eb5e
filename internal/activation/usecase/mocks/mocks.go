// Package mocks provides testify mocks for the activation use case layer.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// MockPipelineUseCase is a mock implementation of PipelineUseCase.
type MockPipelineUseCase struct {
	mock.Mock
}

func (m *MockPipelineUseCase) Process(ctx context.Context, event *domain.Event) (*domain.Resolution, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resolution), args.Error(1)
}

// MockActivationRequestRepository is a mock implementation of ActivationRequestRepository.
type MockActivationRequestRepository struct {
	mock.Mock
}

func (m *MockActivationRequestRepository) Create(ctx context.Context, r *domain.ActivationRequest) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockActivationRequestRepository) ExistsByCorrelationID(
	ctx context.Context,
	correlationID string,
) (bool, error) {
	args := m.Called(ctx, correlationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockActivationRequestRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*domain.ActivationRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ActivationRequest), args.Error(1)
}

func (m *MockActivationRequestRepository) Update(ctx context.Context, r *domain.ActivationRequest) error {
	return m.Called(ctx, r).Error(0)
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, r *domain.ActivationRequest) error {
	return m.Called(ctx, r).Error(0)
}

// MockInvoker is a mock implementation of Invoker.
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(
	ctx context.Context,
	ref verifierDomain.Reference,
	req *verifierDomain.Request,
) (bool, error) {
	args := m.Called(ctx, ref, req)
	return args.Bool(0), args.Error(1)
}
