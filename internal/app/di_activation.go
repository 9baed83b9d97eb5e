package app

import (
	"context"
	"fmt"

	"gocloud.dev/pubsub"

	activationHTTP "github.com/SuYehTarn/jitr/internal/activation/http"
	activationRepository "github.com/SuYehTarn/jitr/internal/activation/repository"
	activationService "github.com/SuYehTarn/jitr/internal/activation/service"
	activationUseCase "github.com/SuYehTarn/jitr/internal/activation/usecase"
	"github.com/SuYehTarn/jitr/internal/cloud"
	"github.com/SuYehTarn/jitr/internal/database"
)

// ActivationRequestRepository returns the durable activation queue.
func (c *Container) ActivationRequestRepository() (activationUseCase.ActivationRequestRepository, error) {
	var err error
	c.activationRepoInit.Do(func() {
		c.activationRepo, err = c.initActivationRequestRepository()
		if err != nil {
			c.initErrors["activationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["activationRepo"]; exists {
		return nil, storedErr
	}
	return c.activationRepo, nil
}

// ActivationTopic returns the topic activation requests are published to.
func (c *Container) ActivationTopic(ctx context.Context) (*pubsub.Topic, error) {
	var err error
	c.activationTopicInit.Do(func() {
		c.activationTopic, err = cloud.OpenTopic(ctx, c.config.ActivationQueueURL)
		if err != nil {
			c.initErrors["activationTopic"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["activationTopic"]; exists {
		return nil, storedErr
	}
	return c.activationTopic, nil
}

// Publisher returns the activation request publisher.
func (c *Container) Publisher(ctx context.Context) (activationUseCase.Publisher, error) {
	var err error
	c.publisherInit.Do(func() {
		var topic *pubsub.Topic
		topic, err = c.ActivationTopic(ctx)
		if err != nil {
			err = fmt.Errorf("failed to get activation topic for publisher: %w", err)
			c.initErrors["publisher"] = err
			return
		}
		c.publisher = activationService.NewTopicPublisher(topic)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// PipelineUseCase returns the verification and activation pipeline.
func (c *Container) PipelineUseCase() (activationUseCase.PipelineUseCase, error) {
	var err error
	c.pipelineUseCaseInit.Do(func() {
		c.pipelineUseCase, err = c.initPipelineUseCase()
		if err != nil {
			c.initErrors["pipelineUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pipelineUseCase"]; exists {
		return nil, storedErr
	}
	return c.pipelineUseCase, nil
}

// RelayUseCase returns the activation relay that publishes queued requests.
func (c *Container) RelayUseCase(ctx context.Context) (activationUseCase.RelayUseCase, error) {
	var err error
	c.relayUseCaseInit.Do(func() {
		c.relayUseCase, err = c.initRelayUseCase(ctx)
		if err != nil {
			c.initErrors["relayUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["relayUseCase"]; exists {
		return nil, storedErr
	}
	return c.relayUseCase, nil
}

// EventHandler returns the HTTP handler of the certificate event intake.
func (c *Container) EventHandler() (*activationHTTP.EventHandler, error) {
	var err error
	c.eventHandlerInit.Do(func() {
		var useCase activationUseCase.PipelineUseCase
		useCase, err = c.PipelineUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get pipeline use case for event handler: %w", err)
			c.initErrors["eventHandler"] = err
			return
		}
		c.eventHandler = activationHTTP.NewEventHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventHandler"]; exists {
		return nil, storedErr
	}
	return c.eventHandler, nil
}

func (c *Container) initActivationRequestRepository() (activationUseCase.ActivationRequestRepository, error) {
	if c.InMemory() {
		return activationRepository.NewMemoryActivationRequestRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for activation request repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return activationRepository.NewMySQLActivationRequestRepository(db), nil
	case database.DriverPostgres:
		return activationRepository.NewPostgreSQLActivationRequestRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initPipelineUseCase() (activationUseCase.PipelineUseCase, error) {
	registrations, err := c.RegistrationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get registration use case for pipeline: %w", err)
	}

	queue, err := c.ActivationRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get activation request repository for pipeline: %w", err)
	}

	pipelineConfig := activationUseCase.PipelineConfig{
		VerifierTimeout:        c.config.VerifierTimeout,
		EventTimeout:           c.config.EventTimeout,
		Concurrency:            c.config.VerifierConcurrency,
		DispatchMaxAttempts:    c.config.DispatchMaxAttempts,
		DispatchInitialBackoff: c.config.DispatchInitialBackoff,
		Activator:              c.config.ActivatorAddress,
	}

	baseUseCase := activationUseCase.NewPipelineUseCase(
		pipelineConfig,
		registrations,
		c.VerifierRegistry(),
		c.Invoker(),
		queue,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for pipeline: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for pipeline: %w", err)
		}
		return activationUseCase.NewPipelineUseCaseWithMetrics(baseUseCase, pipelineMetrics, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initRelayUseCase(ctx context.Context) (activationUseCase.RelayUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for relay use case: %w", err)
	}

	queue, err := c.ActivationRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get activation request repository for relay use case: %w", err)
	}

	publisher, err := c.Publisher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for relay use case: %w", err)
	}

	relayConfig := activationUseCase.RelayConfig{
		Interval:   c.config.WorkerInterval,
		BatchSize:  c.config.WorkerBatchSize,
		MaxRetries: c.config.WorkerMaxRetries,
	}

	return activationUseCase.NewRelayUseCase(relayConfig, txManager, queue, publisher, c.Logger()), nil
}
