package usecase

import (
	"context"
	"time"

	"github.com/SuYehTarn/jitr/internal/metrics"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// verifierUseCaseWithMetrics decorates VerifierUseCase write paths with metrics.
type verifierUseCaseWithMetrics struct {
	next    VerifierUseCase
	metrics metrics.BusinessMetrics
}

// NewVerifierUseCaseWithMetrics wraps a VerifierUseCase with metrics recording.
func NewVerifierUseCaseWithMetrics(useCase VerifierUseCase, m metrics.BusinessMetrics) VerifierUseCase {
	return &verifierUseCaseWithMetrics{next: useCase, metrics: m}
}

func (v *verifierUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	v.metrics.RecordOperation(ctx, "verifier", operation, status)
	v.metrics.RecordDuration(ctx, "verifier", operation, time.Since(start), status)
}

func (v *verifierUseCaseWithMetrics) List(ctx context.Context) ([]*domain.Verifier, error) {
	return v.next.List(ctx)
}

func (v *verifierUseCaseWithMetrics) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	return v.next.Get(ctx, name)
}

func (v *verifierUseCaseWithMetrics) Put(
	ctx context.Context,
	name string,
	ref domain.Reference,
) (*domain.Verifier, error) {
	start := time.Now()
	verifier, err := v.next.Put(ctx, name, ref)
	v.record(ctx, "put", start, err)
	return verifier, err
}

func (v *verifierUseCaseWithMetrics) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := v.next.Delete(ctx, name)
	v.record(ctx, "delete", start, err)
	return err
}

func (v *verifierUseCaseWithMetrics) Load(ctx context.Context, seeds []*domain.Verifier) error {
	start := time.Now()
	err := v.next.Load(ctx, seeds)
	v.record(ctx, "load", start, err)
	return err
}

func (v *verifierUseCaseWithMetrics) Refresh(ctx context.Context) error {
	start := time.Now()
	err := v.next.Refresh(ctx)
	v.record(ctx, "refresh", start, err)
	return err
}

func (v *verifierUseCaseWithMetrics) Watch(ctx context.Context, interval time.Duration) error {
	return v.next.Watch(ctx, interval)
}
