package usecase

import (
	"context"
	"time"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	"github.com/SuYehTarn/jitr/internal/metrics"
)

// pipelineUseCaseWithMetrics records terminal states and verifier outcomes.
type pipelineUseCaseWithMetrics struct {
	next     PipelineUseCase
	pipeline metrics.PipelineMetrics
	business metrics.BusinessMetrics
}

// NewPipelineUseCaseWithMetrics wraps a PipelineUseCase with metrics recording.
func NewPipelineUseCaseWithMetrics(
	useCase PipelineUseCase,
	pipeline metrics.PipelineMetrics,
	business metrics.BusinessMetrics,
) PipelineUseCase {
	return &pipelineUseCaseWithMetrics{next: useCase, pipeline: pipeline, business: business}
}

func (p *pipelineUseCaseWithMetrics) Process(
	ctx context.Context,
	event *domain.Event,
) (*domain.Resolution, error) {
	start := time.Now()
	resolution, err := p.next.Process(ctx, event)

	status := metrics.Status(err)
	p.business.RecordOperation(ctx, "activation", "process", status)
	p.business.RecordDuration(ctx, "activation", "process", time.Since(start), status)

	if resolution != nil {
		p.pipeline.RecordEvent(ctx, string(resolution.State), resolution.Reason)
		for _, o := range resolution.Outcomes {
			p.pipeline.RecordVerifierOutcome(ctx, o.Verifier, string(o.Result), o.Reason, o.Duration)
		}
	}

	return resolution, err
}
