// Package mocks provides testify mocks for the registration use case layer.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/registration/usecase"
)

// MockRegistrationUseCase is a mock implementation of RegistrationUseCase.
type MockRegistrationUseCase struct {
	mock.Mock
}

func (m *MockRegistrationUseCase) Register(
	ctx context.Context,
	input usecase.RegisterInput,
) (*domain.Registration, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) Get(ctx context.Context, caID string) (*domain.Registration, error) {
	args := m.Called(ctx, caID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) Resolve(ctx context.Context, caID, keyID string) (*domain.Registration, error) {
	args := m.Called(ctx, caID, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Registration, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Registration), args.Error(1)
}

// MockDeviceRegistry is a mock implementation of DeviceRegistry.
type MockDeviceRegistry struct {
	mock.Mock
}

func (m *MockDeviceRegistry) CreateRole(ctx context.Context, identity domain.ScopedIdentity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockDeviceRegistry) AttachRolePolicy(ctx context.Context, identity domain.ScopedIdentity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockDeviceRegistry) EnsureActivator(
	ctx context.Context,
	identity domain.ScopedIdentity,
	activator domain.Activator,
) error {
	return m.Called(ctx, identity, activator).Error(0)
}

func (m *MockDeviceRegistry) GetRegistrationCode(ctx context.Context, identity domain.ScopedIdentity) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

func (m *MockDeviceRegistry) RegisterCACertificate(
	ctx context.Context,
	identity domain.ScopedIdentity,
	tm *domain.TrustMaterial,
	registrationCode string,
) (string, error) {
	args := m.Called(ctx, identity, tm, registrationCode)
	return args.String(0), args.Error(1)
}

func (m *MockDeviceRegistry) TagResource(
	ctx context.Context,
	identity domain.ScopedIdentity,
	resourceID string,
	tags map[string]string,
) error {
	return m.Called(ctx, identity, resourceID, tags).Error(0)
}

func (m *MockDeviceRegistry) CreateTopicRule(
	ctx context.Context,
	identity domain.ScopedIdentity,
	rule domain.RoutingRule,
) error {
	return m.Called(ctx, identity, rule).Error(0)
}

// MockVault is a mock implementation of Vault.
type MockVault struct {
	mock.Mock
}

func (m *MockVault) Store(ctx context.Context, r *domain.Registration) error {
	return m.Called(ctx, r).Error(0)
}
