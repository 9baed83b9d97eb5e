// Package mocks provides testify mocks for the verifier use case layer.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// MockVerifierUseCase is a mock implementation of VerifierUseCase.
type MockVerifierUseCase struct {
	mock.Mock
}

func (m *MockVerifierUseCase) List(ctx context.Context) ([]*domain.Verifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Verifier), args.Error(1)
}

func (m *MockVerifierUseCase) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Verifier), args.Error(1)
}

func (m *MockVerifierUseCase) Put(ctx context.Context, name string, ref domain.Reference) (*domain.Verifier, error) {
	args := m.Called(ctx, name, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Verifier), args.Error(1)
}

func (m *MockVerifierUseCase) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockVerifierUseCase) Load(ctx context.Context, seeds []*domain.Verifier) error {
	args := m.Called(ctx, seeds)
	return args.Error(0)
}

func (m *MockVerifierUseCase) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVerifierUseCase) Watch(ctx context.Context, interval time.Duration) error {
	args := m.Called(ctx, interval)
	return args.Error(0)
}

// MockVerifierRepository is a mock implementation of VerifierRepository.
type MockVerifierRepository struct {
	mock.Mock
}

func (m *MockVerifierRepository) Upsert(ctx context.Context, v *domain.Verifier) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVerifierRepository) List(ctx context.Context) ([]*domain.Verifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Verifier), args.Error(1)
}

func (m *MockVerifierRepository) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockVerifierRepository) ListDeleted(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockResolver is a mock implementation of Resolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ref domain.Reference) error {
	args := m.Called(ref)
	return args.Error(0)
}
