package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records certificate event outcomes.
type PipelineMetrics interface {
	// RecordEvent counts an event reaching a terminal state ("dispatched" or
	// "suppressed") with the suppression reason, empty when dispatched.
	RecordEvent(ctx context.Context, state, reason string)

	// RecordVerifierOutcome counts one verifier result ("accept", "reject",
	// "error") and its latency.
	RecordVerifierOutcome(ctx context.Context, verifier, result, reason string, duration time.Duration)
}

type pipelineMetrics struct {
	eventCounter   metric.Int64Counter
	outcomeCounter metric.Int64Counter
	verifierHisto  metric.Float64Histogram
}

// NewPipelineMetrics creates PipelineMetrics instruments on the given meter provider.
func NewPipelineMetrics(meterProvider metric.MeterProvider, namespace string) (PipelineMetrics, error) {
	meter := meterProvider.Meter(namespace)

	eventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_certificate_events_total", namespace),
		metric.WithDescription("Certificate events by terminal state"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	outcomeCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_verifier_outcomes_total", namespace),
		metric.WithDescription("Verifier invocation outcomes"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outcome counter: %w", err)
	}

	verifierHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_verifier_duration_seconds", namespace),
		metric.WithDescription("Verifier invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier histogram: %w", err)
	}

	return &pipelineMetrics{
		eventCounter:   eventCounter,
		outcomeCounter: outcomeCounter,
		verifierHisto:  verifierHisto,
	}, nil
}

func (p *pipelineMetrics) RecordEvent(ctx context.Context, state, reason string) {
	p.eventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("state", state),
			attribute.String("reason", reason),
		),
	)
}

func (p *pipelineMetrics) RecordVerifierOutcome(
	ctx context.Context,
	verifier, result, reason string,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("verifier", verifier),
		attribute.String("result", result),
		attribute.String("reason", reason),
	)
	p.outcomeCounter.Add(ctx, 1, attrs)
	p.verifierHisto.Record(ctx, duration.Seconds(), attrs)
}

// NoOpPipelineMetrics discards pipeline measurements.
type NoOpPipelineMetrics struct{}

// NewNoOpPipelineMetrics creates a no-op PipelineMetrics implementation.
func NewNoOpPipelineMetrics() PipelineMetrics {
	return &NoOpPipelineMetrics{}
}

func (n *NoOpPipelineMetrics) RecordEvent(ctx context.Context, state, reason string) {}

func (n *NoOpPipelineMetrics) RecordVerifierOutcome(
	ctx context.Context,
	verifier, result, reason string,
	duration time.Duration,
) {
}
