package usecase

import (
	"context"
	"time"

	"github.com/SuYehTarn/jitr/internal/metrics"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// registrationUseCaseWithMetrics decorates RegistrationUseCase with metrics.
type registrationUseCaseWithMetrics struct {
	next    RegistrationUseCase
	metrics metrics.BusinessMetrics
}

// NewRegistrationUseCaseWithMetrics wraps a RegistrationUseCase with metrics recording.
func NewRegistrationUseCaseWithMetrics(
	useCase RegistrationUseCase,
	m metrics.BusinessMetrics,
) RegistrationUseCase {
	return &registrationUseCaseWithMetrics{next: useCase, metrics: m}
}

func (r *registrationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	r.metrics.RecordOperation(ctx, "registration", operation, status)
	r.metrics.RecordDuration(ctx, "registration", operation, time.Since(start), status)
}

func (r *registrationUseCaseWithMetrics) Register(
	ctx context.Context,
	input RegisterInput,
) (*domain.Registration, error) {
	start := time.Now()
	registration, err := r.next.Register(ctx, input)
	r.record(ctx, "register", start, err)
	return registration, err
}

func (r *registrationUseCaseWithMetrics) Get(ctx context.Context, caID string) (*domain.Registration, error) {
	start := time.Now()
	registration, err := r.next.Get(ctx, caID)
	r.record(ctx, "get", start, err)
	return registration, err
}

func (r *registrationUseCaseWithMetrics) Resolve(
	ctx context.Context,
	caID, keyID string,
) (*domain.Registration, error) {
	return r.next.Resolve(ctx, caID, keyID)
}

func (r *registrationUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Registration, error) {
	start := time.Now()
	registrations, err := r.next.List(ctx, offset, limit)
	r.record(ctx, "list", start, err)
	return registrations, err
}
