package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	registrationDomain "github.com/SuYehTarn/jitr/internal/registration/domain"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	// VerifierTimeout bounds one verifier invocation.
	VerifierTimeout time.Duration
	// EventTimeout bounds the verification phase of one event.
	EventTimeout time.Duration
	// Concurrency caps in-flight invocations per event.
	Concurrency int
	// DispatchMaxAttempts bounds enqueue attempts, and the attempts of the
	// duplicate check and registration lookup that precede verification.
	DispatchMaxAttempts int
	// DispatchInitialBackoff is the first delay between attempts.
	DispatchInitialBackoff time.Duration
	// Activator is the activation capability address carried in messages.
	Activator string
}

type pipelineUseCase struct {
	config        PipelineConfig
	registrations RegistrationResolver
	verifiers     VerifierRegistry
	invoker       Invoker
	queue         ActivationRequestRepository
	logger        *slog.Logger
}

// NewPipelineUseCase creates a new PipelineUseCase.
func NewPipelineUseCase(
	config PipelineConfig,
	registrations RegistrationResolver,
	verifiers VerifierRegistry,
	invoker Invoker,
	queue ActivationRequestRepository,
	logger *slog.Logger,
) PipelineUseCase {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if config.DispatchMaxAttempts <= 0 {
		config.DispatchMaxAttempts = 1
	}
	if config.DispatchInitialBackoff <= 0 {
		config.DispatchInitialBackoff = 100 * time.Millisecond
	}
	return &pipelineUseCase{
		config:        config,
		registrations: registrations,
		verifiers:     verifiers,
		invoker:       invoker,
		queue:         queue,
		logger:        logger,
	}
}

// Process runs detached from the caller's cancellation: a caller going away
// neither times out pending verifiers nor loses an accepted event. The
// verification phase is bounded by EventTimeout alone.
func (p *pipelineUseCase) Process(ctx context.Context, event *domain.Event) (*domain.Resolution, error) {
	if event == nil || event.Certificate == nil {
		return nil, domain.ErrInvalidEvent
	}
	ctx = context.WithoutCancel(ctx)
	if event.CorrelationID == "" {
		event.CorrelationID = domain.CorrelationID(event.Certificate, "")
	}

	logger := p.logger.With(slog.String("correlation_id", event.CorrelationID))
	resolution := &domain.Resolution{CorrelationID: event.CorrelationID, State: domain.StateReceived}

	var dispatched bool
	err := p.retry(ctx, logger, "duplicate check", func() error {
		var err error
		dispatched, err = p.queue.ExistsByCorrelationID(ctx, event.CorrelationID)
		return err
	}, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check activation queue")
	}
	if dispatched {
		logger.Info("duplicate certificate event suppressed")
		return suppress(resolution, domain.SuppressDuplicate), nil
	}

	var registration *registrationDomain.Registration
	err = p.retry(ctx, logger, "registration lookup", func() error {
		var err error
		registration, err = p.registrations.Resolve(ctx, event.CAID, event.AuthorityKeyID())
		return err
	}, func(err error) bool {
		return apperrors.Is(err, apperrors.ErrNotFound)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("certificate event from unregistered CA suppressed",
				slog.String("ca_id", event.CAID),
				slog.String("authority_key_id", event.AuthorityKeyID()),
			)
			return suppress(resolution, domain.SuppressUnregisteredCA), nil
		}
		return nil, apperrors.Wrap(err, "failed to resolve registration")
	}
	resolution.CAID = registration.CAID
	logger = logger.With(slog.String("ca_id", registration.CAID))

	resolution.State = domain.StateVerifying
	if len(registration.VerifierNames) == 0 {
		logger.Warn("no verifiers bound to CA, accepting certificate by open admission")
	}
	resolution.Outcomes = p.verify(ctx, logger, event, registration)

	resolution.State = domain.StateDecided
	resolution.Decision = domain.Combine(resolution.Outcomes)
	if resolution.Decision == domain.DecisionReject {
		logger.Info("certificate rejected", slog.Any("outcomes", outcomeAttrs(resolution.Outcomes)))
		return suppress(resolution, domain.SuppressRejected), nil
	}

	return p.dispatch(ctx, logger, event, registration, resolution), nil
}

func suppress(r *domain.Resolution, reason string) *domain.Resolution {
	r.State = domain.StateSuppressed
	r.Reason = reason
	return r
}

// verify invokes every bound verifier concurrently. Slots start as timeouts
// and are filled as invocations return. Once the event deadline passes the
// slots are frozen and later results are dropped.
func (p *pipelineUseCase) verify(
	ctx context.Context,
	logger *slog.Logger,
	event *domain.Event,
	registration *registrationDomain.Registration,
) []domain.Outcome {
	names := registration.VerifierNames
	outcomes := make([]domain.Outcome, len(names))
	for i, name := range names {
		outcomes[i] = domain.Outcome{Verifier: name, Result: domain.ResultError, Reason: domain.ReasonTimeout}
	}
	if len(names) == 0 {
		return outcomes
	}

	request := &verifierDomain.Request{
		CorrelationID:  event.CorrelationID,
		CAID:           registration.CAID,
		Certificate:    event.Certificate,
		CertificatePEM: event.CertificatePEM,
		OCSPResponse:   event.OCSPResponse,
		Context:        event.Context,
	}
	if caCert, err := registration.Certificate(); err == nil {
		request.CACertificate = caCert
	}

	eventCtx := ctx
	var cancel context.CancelFunc
	if p.config.EventTimeout > 0 {
		eventCtx, cancel = context.WithTimeout(ctx, p.config.EventTimeout)
	} else {
		eventCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		mu     sync.Mutex
		frozen bool
	)
	done := make(chan struct{})

	go func() {
		defer close(done)

		g := new(errgroup.Group)
		g.SetLimit(p.config.Concurrency)
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				if eventCtx.Err() != nil {
					return nil
				}
				outcome := p.invoke(eventCtx, logger, name, request)

				mu.Lock()
				defer mu.Unlock()
				if !frozen {
					outcomes[i] = outcome
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-eventCtx.Done():
		logger.Warn("event timeout elapsed before all verifiers answered",
			slog.Duration("event_timeout", p.config.EventTimeout),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	frozen = true
	return append([]domain.Outcome(nil), outcomes...)
}

func (p *pipelineUseCase) invoke(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	request *verifierDomain.Request,
) domain.Outcome {
	start := time.Now()
	outcome := domain.Outcome{Verifier: name}

	verifier, err := p.verifiers.Get(name)
	if err != nil {
		logger.Error("bound verifier no longer resolves, treating as error",
			slog.String("verifier", name),
			slog.Any("error", err),
		)
		outcome.Result = domain.ResultError
		outcome.Reason = domain.ReasonConfigDrift
		outcome.Detail = err.Error()
		outcome.Duration = time.Since(start)
		return outcome
	}

	invokeCtx := ctx
	if p.config.VerifierTimeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, p.config.VerifierTimeout)
		defer cancel()
	}

	verified, err := p.invoker.Invoke(invokeCtx, verifier.Reference, request)
	outcome.Duration = time.Since(start)

	switch {
	case err == nil && verified:
		outcome.Result = domain.ResultAccept
	case err == nil:
		outcome.Result = domain.ResultReject
	case invokeCtx.Err() != nil:
		outcome.Result = domain.ResultError
		outcome.Reason = domain.ReasonTimeout
		outcome.Detail = invokeCtx.Err().Error()
	default:
		outcome.Result = domain.ResultError
		outcome.Reason = domain.ReasonInvocationFailed
		outcome.Detail = err.Error()
	}

	logger.Debug("verifier answered",
		slog.String("verifier", name),
		slog.String("result", string(outcome.Result)),
		slog.String("reason", outcome.Reason),
		slog.Duration("duration", outcome.Duration),
	)
	return outcome
}

// retry runs op up to DispatchMaxAttempts times with exponential backoff.
// Errors matching permanent end the attempts at once.
func (p *pipelineUseCase) retry(
	ctx context.Context,
	logger *slog.Logger,
	step string,
	op func() error,
	permanent func(error) bool,
) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.DispatchInitialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.config.DispatchMaxAttempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && permanent != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn(step+" failed, retrying", slog.Duration("wait", wait), slog.Any("error", err))
	})
}

// dispatch enqueues exactly one activation request for an accepted event.
func (p *pipelineUseCase) dispatch(
	ctx context.Context,
	logger *slog.Logger,
	event *domain.Event,
	registration *registrationDomain.Registration,
	resolution *domain.Resolution,
) *domain.Resolution {
	request, err := p.newActivationRequest(event, registration)
	if err != nil {
		logger.Error("failed to build activation request", slog.Any("error", err))
		return suppress(resolution, domain.SuppressDispatchFailed)
	}

	err = p.retry(ctx, logger, "enqueue", func() error {
		return p.queue.Create(ctx, request)
	}, func(err error) bool {
		return apperrors.Is(err, domain.ErrDuplicateActivation)
	})

	switch {
	case err == nil:
		resolution.State = domain.StateDispatched
		resolution.ActivationID = request.ID.String()
		logger.Info("activation dispatched", slog.String("activation_id", resolution.ActivationID))
		return resolution
	case apperrors.Is(err, domain.ErrDuplicateActivation):
		logger.Info("duplicate certificate event suppressed at enqueue")
		return suppress(resolution, domain.SuppressDuplicate)
	default:
		logger.Error("activation dispatch failed, event suppressed",
			slog.Int("attempts", p.config.DispatchMaxAttempts),
			slog.Any("error", err),
		)
		return suppress(resolution, domain.SuppressDispatchFailed)
	}
}

func (p *pipelineUseCase) newActivationRequest(
	event *domain.Event,
	registration *registrationDomain.Registration,
) (*domain.ActivationRequest, error) {
	deviceID := domain.Fingerprint(event.Certificate)
	now := time.Now().UTC()

	payload, err := json.Marshal(domain.Message{
		CorrelationID:        event.CorrelationID,
		CAID:                 registration.CAID,
		CACertificateID:      registration.CACertificateID,
		DeviceID:             deviceID,
		DeviceCertificatePEM: event.CertificatePEM,
		Identity: domain.Identity{
			Name:      registration.Identity.Name,
			Reference: registration.Identity.Reference,
			Actions:   registration.Identity.Actions,
		},
		Activator:  p.config.Activator,
		AcceptedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode activation message: %w", err)
	}

	return &domain.ActivationRequest{
		ID:            uuid.Must(uuid.NewV7()),
		CorrelationID: event.CorrelationID,
		CAID:          registration.CAID,
		DeviceID:      deviceID,
		Payload:       string(payload),
		Status:        domain.ActivationRequestStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func outcomeAttrs(outcomes []domain.Outcome) map[string]string {
	attrs := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		value := string(o.Result)
		if o.Reason != "" {
			value += ":" + o.Reason
		}
		attrs[o.Verifier] = value
	}
	return attrs
}
