package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	"github.com/SuYehTarn/jitr/internal/activation/repository"
	"github.com/SuYehTarn/jitr/internal/activation/usecase/mocks"
	registrationDomain "github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/testutil"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
	"github.com/SuYehTarn/jitr/internal/verifier/registry"
)

type verdictFunc func(ctx context.Context) (bool, error)

// stubInvoker answers by reference address.
type stubInvoker struct {
	verdicts map[string]verdictFunc
	calls    atomic.Int32
}

func (s *stubInvoker) Invoke(ctx context.Context, ref verifierDomain.Reference, _ *verifierDomain.Request) (bool, error) {
	s.calls.Add(1)
	fn, ok := s.verdicts[ref.Address]
	if !ok {
		return false, errors.New("no such capability")
	}
	return fn(ctx)
}

func accept(context.Context) (bool, error) { return true, nil }

func reject(context.Context) (bool, error) { return false, nil }

func blockUntilDone(ctx context.Context) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

// stubResolver fails the first failures calls with err, or every call when
// failures is zero.
type stubResolver struct {
	registration *registrationDomain.Registration
	err          error
	failures     int32
	calls        atomic.Int32
}

func (s *stubResolver) Resolve(context.Context, string, string) (*registrationDomain.Registration, error) {
	call := s.calls.Add(1)
	if s.err != nil && (s.failures == 0 || call <= s.failures) {
		return nil, s.err
	}
	return s.registration, nil
}

type pipelineFixture struct {
	ca       *testutil.Certificate
	verifier *registry.MemoryRegistry
	invoker  *stubInvoker
	resolver *stubResolver
	queue    *repository.MemoryActivationRequestRepository
}

func newPipelineFixture(t *testing.T, verdicts map[string]verdictFunc, bound ...string) *pipelineFixture {
	t.Helper()

	ca := testutil.NewCA(t, "fleet-ca")
	verifiers := registry.NewMemoryRegistry()
	for name := range verdicts {
		require.NoError(t, verifiers.Put(verifierDomain.Verifier{
			Name:      name,
			Reference: verifierDomain.Reference{Address: "builtin:" + name},
		}))
	}

	addressed := make(map[string]verdictFunc, len(verdicts))
	for name, fn := range verdicts {
		addressed["builtin:"+name] = fn
	}

	return &pipelineFixture{
		ca:       ca,
		verifier: verifiers,
		invoker:  &stubInvoker{verdicts: addressed},
		resolver: &stubResolver{registration: &registrationDomain.Registration{
			CAID:             "fleet-ca",
			CACertificateID:  "cert-1",
			CACertificatePEM: ca.PEM,
			Identity: registrationDomain.ScopedIdentity{
				Name:    "jitr-activator-fleet",
				Actions: registrationDomain.ScopedActions(),
			},
			VerifierNames: bound,
		}},
		queue: repository.NewMemoryActivationRequestRepository(),
	}
}

func (f *pipelineFixture) useCase(config PipelineConfig) PipelineUseCase {
	return NewPipelineUseCase(
		config,
		f.resolver,
		f.verifier,
		f.invoker,
		f.queue,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (f *pipelineFixture) event(t *testing.T) *domain.Event {
	t.Helper()
	device := f.ca.IssueDevice(t, "device-1")
	return &domain.Event{
		CAID:           "fleet-ca",
		Certificate:    device.Cert,
		CertificatePEM: device.PEM,
		ReceivedAt:     time.Now(),
	}
}

func defaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		VerifierTimeout:     time.Second,
		EventTimeout:        2 * time.Second,
		Concurrency:         4,
		DispatchMaxAttempts: 3,
		Activator:           "builtin:activator",
	}
}

func TestPipelineUseCase_Process(t *testing.T) {
	t.Run("Success_AllAccept", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept, "b": accept, "c": accept}, "a", "b", "c")

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		assert.Equal(t, domain.DecisionAccept, resolution.Decision)
		assert.NotEmpty(t, resolution.ActivationID)
		require.Len(t, resolution.Outcomes, 3)
		for _, o := range resolution.Outcomes {
			assert.Equal(t, domain.ResultAccept, o.Result)
		}

		queued := f.queue.All()
		require.Len(t, queued, 1)
		assert.Equal(t, resolution.ActivationID, queued[0].ID.String())
		assert.Equal(t, domain.ActivationRequestStatusPending, queued[0].Status)
		assert.Contains(t, queued[0].Payload, `"activator":"builtin:activator"`)
	})

	t.Run("Rejected_OneVerifierRejects", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept, "b": reject, "c": accept}, "a", "b", "c")

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateSuppressed, resolution.State)
		assert.Equal(t, domain.SuppressRejected, resolution.Reason)
		assert.Equal(t, domain.DecisionReject, resolution.Decision)
		assert.Equal(t, domain.ResultReject, resolution.Outcomes[1].Result)
		assert.Empty(t, f.queue.All())
		// every verifier is consulted even after a reject
		assert.Equal(t, int32(3), f.invoker.calls.Load())
	})

	t.Run("OpenAdmission_NoVerifiersBound", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{})

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		assert.Equal(t, domain.DecisionAccept, resolution.Decision)
		assert.Empty(t, resolution.Outcomes)
		assert.Len(t, f.queue.All(), 1)
	})

	t.Run("Duplicate_SecondDeliverySuppressed", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		useCase := f.useCase(defaultPipelineConfig())
		event := f.event(t)

		first, err := useCase.Process(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, first.State)

		again := *event
		second, err := useCase.Process(context.Background(), &again)
		require.NoError(t, err)
		assert.Equal(t, domain.StateSuppressed, second.State)
		assert.Equal(t, domain.SuppressDuplicate, second.Reason)
		assert.Len(t, f.queue.All(), 1)
		assert.Equal(t, int32(1), f.invoker.calls.Load())
	})

	t.Run("Duplicate_ConcurrentDeliveries", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		useCase := f.useCase(defaultPipelineConfig())
		event := f.event(t)
		event.CorrelationID = domain.CorrelationID(event.Certificate, "conn-1")

		var wg sync.WaitGroup
		var dispatched atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				copied := *event
				resolution, err := useCase.Process(context.Background(), &copied)
				if err == nil && resolution.State == domain.StateDispatched {
					dispatched.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), dispatched.Load())
		assert.Len(t, f.queue.All(), 1)
	})

	t.Run("VerifierTimeout_CountsAsReject", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept, "slow": blockUntilDone}, "a", "slow")
		config := defaultPipelineConfig()
		config.VerifierTimeout = 20 * time.Millisecond

		resolution, err := f.useCase(config).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.SuppressRejected, resolution.Reason)
		assert.Equal(t, domain.ResultAccept, resolution.Outcomes[0].Result)
		assert.Equal(t, domain.ResultError, resolution.Outcomes[1].Result)
		assert.Equal(t, domain.ReasonTimeout, resolution.Outcomes[1].Reason)
		assert.Empty(t, f.queue.All())
	})

	t.Run("EventTimeout_LateResultIgnored", func(t *testing.T) {
		release := make(chan struct{})
		defer goleak.VerifyNone(t)
		defer close(release)

		stubborn := func(context.Context) (bool, error) {
			<-release
			return true, nil
		}
		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept, "stubborn": stubborn}, "a", "stubborn")
		config := defaultPipelineConfig()
		config.VerifierTimeout = 0
		config.EventTimeout = 30 * time.Millisecond

		resolution, err := f.useCase(config).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.SuppressRejected, resolution.Reason)
		assert.Equal(t, domain.ResultError, resolution.Outcomes[1].Result)
		assert.Equal(t, domain.ReasonTimeout, resolution.Outcomes[1].Reason)

		outcomes := append([]domain.Outcome(nil), resolution.Outcomes...)
		release <- struct{}{}
		assert.Equal(t, outcomes, resolution.Outcomes)
		assert.Empty(t, f.queue.All())
	})

	t.Run("InvocationFailure_CountsAsReject", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		failing := func(context.Context) (bool, error) { return false, errors.New("connection refused") }
		f := newPipelineFixture(t, map[string]verdictFunc{"a": failing}, "a")

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.SuppressRejected, resolution.Reason)
		assert.Equal(t, domain.ReasonInvocationFailed, resolution.Outcomes[0].Reason)
		assert.Contains(t, resolution.Outcomes[0].Detail, "connection refused")
	})

	t.Run("ConfigDrift_DeletedVerifier", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a", "gone")

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.SuppressRejected, resolution.Reason)
		assert.Equal(t, "gone", resolution.Outcomes[1].Verifier)
		assert.Equal(t, domain.ResultError, resolution.Outcomes[1].Result)
		assert.Equal(t, domain.ReasonConfigDrift, resolution.Outcomes[1].Reason)
		assert.Equal(t, int32(1), f.invoker.calls.Load())
	})

	t.Run("UnregisteredCA", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		f.resolver.err = registrationDomain.ErrRegistrationNotFound

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateSuppressed, resolution.State)
		assert.Equal(t, domain.SuppressUnregisteredCA, resolution.Reason)
		assert.Equal(t, int32(0), f.invoker.calls.Load())
		assert.Equal(t, int32(1), f.resolver.calls.Load())
	})

	t.Run("Error_RegistryLookupFails", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		f.resolver.err = errors.New("database down")

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		resolution, err := f.useCase(config).Process(context.Background(), f.event(t))

		assert.Nil(t, resolution)
		assert.Error(t, err)
		assert.Equal(t, int32(config.DispatchMaxAttempts), f.resolver.calls.Load())
	})

	t.Run("Retry_TransientLookupFailure", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		f.resolver.err = errors.New("connection reset")
		f.resolver.failures = 2

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		resolution, err := f.useCase(config).Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		assert.Equal(t, int32(3), f.resolver.calls.Load())
	})

	t.Run("CallerCancelledDuringVerify", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		slowAccept := func(ctx context.Context) (bool, error) {
			select {
			case <-time.After(100 * time.Millisecond):
				return true, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
		f := newPipelineFixture(t, map[string]verdictFunc{"a": slowAccept}, "a")

		ctx, cancel := context.WithCancel(context.Background())
		timer := time.AfterFunc(10*time.Millisecond, cancel)
		defer timer.Stop()

		resolution, err := f.useCase(defaultPipelineConfig()).Process(ctx, f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		require.Len(t, resolution.Outcomes, 1)
		assert.Equal(t, domain.ResultAccept, resolution.Outcomes[0].Result)
		assert.Len(t, f.queue.All(), 1)
	})

	t.Run("Error_InvalidEvent", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), &domain.Event{})

		assert.Nil(t, resolution)
		assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("Success_DefaultCorrelationID", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		event := f.event(t)

		resolution, err := f.useCase(defaultPipelineConfig()).Process(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, domain.CorrelationID(event.Certificate, ""), resolution.CorrelationID)
	})
}

func TestPipelineUseCase_ConcurrencyLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak atomic.Int32
	tracked := func(context.Context) (bool, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return true, nil
	}

	f := newPipelineFixture(t,
		map[string]verdictFunc{"a": tracked, "b": tracked, "c": tracked, "d": tracked},
		"a", "b", "c", "d",
	)
	config := defaultPipelineConfig()
	config.Concurrency = 2

	resolution, err := f.useCase(config).Process(context.Background(), f.event(t))

	require.NoError(t, err)
	assert.Equal(t, domain.StateDispatched, resolution.State)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPipelineUseCase_Dispatch(t *testing.T) {
	t.Run("Retry_Exhausted", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, nil).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(errors.New("queue unavailable")).Times(3)

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		useCase := NewPipelineUseCase(config, f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateSuppressed, resolution.State)
		assert.Equal(t, domain.SuppressDispatchFailed, resolution.Reason)
		assert.Equal(t, domain.DecisionAccept, resolution.Decision)
		queue.AssertExpectations(t)
	})

	t.Run("Retry_ThenSuccess", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, nil).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(errors.New("queue unavailable")).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		useCase := NewPipelineUseCase(config, f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		queue.AssertExpectations(t)
	})

	t.Run("DuplicateAtEnqueue_NotRetried", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, nil).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateActivation).Once()

		useCase := NewPipelineUseCase(defaultPipelineConfig(), f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.SuppressDuplicate, resolution.Reason)
		queue.AssertExpectations(t)
	})

	t.Run("DetachedFromCallerCancellation", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		queue.On("Create", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(errors.New("queue unavailable")).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		useCase := NewPipelineUseCase(config, f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(ctx, f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		queue.AssertExpectations(t)
	})

	t.Run("Retry_TransientExistsCheckFailure", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, errors.New("db down")).Once()
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, nil).Once()
		queue.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		useCase := NewPipelineUseCase(config, f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(context.Background(), f.event(t))

		require.NoError(t, err)
		assert.Equal(t, domain.StateDispatched, resolution.State)
		queue.AssertExpectations(t)
	})

	t.Run("Error_ExistsCheckFails", func(t *testing.T) {
		f := newPipelineFixture(t, map[string]verdictFunc{})
		queue := &mocks.MockActivationRequestRepository{}
		queue.On("ExistsByCorrelationID", mock.Anything, mock.Anything).Return(false, errors.New("db down")).Times(3)

		config := defaultPipelineConfig()
		config.DispatchInitialBackoff = time.Millisecond
		useCase := NewPipelineUseCase(config, f.resolver, f.verifier, f.invoker, queue,
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		resolution, err := useCase.Process(context.Background(), f.event(t))

		assert.Nil(t, resolution)
		assert.Error(t, err)
		queue.AssertExpectations(t)
	})
}

func TestPipelineUseCase_VerifierRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newPipelineFixture(t, map[string]verdictFunc{"a": accept}, "a")
	invoker := &mocks.MockInvoker{}
	event := f.event(t)
	event.OCSPResponse = []byte{0x30}
	event.Context = map[string]string{"client_id": "device-1"}

	invoker.On("Invoke", mock.Anything, verifierDomain.Reference{Address: "builtin:a"},
		mock.MatchedBy(func(req *verifierDomain.Request) bool {
			return req.CAID == "fleet-ca" &&
				req.Certificate == event.Certificate &&
				req.CACertificate != nil &&
				req.CACertificate.Equal(f.ca.Cert) &&
				len(req.OCSPResponse) == 1 &&
				req.Context["client_id"] == "device-1"
		})).Return(true, nil).Once()

	useCase := NewPipelineUseCase(defaultPipelineConfig(), f.resolver, f.verifier, invoker, f.queue,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	resolution, err := useCase.Process(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, domain.StateDispatched, resolution.State)
	invoker.AssertExpectations(t)
}
