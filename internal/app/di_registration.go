package app

import (
	"context"
	"fmt"

	"github.com/SuYehTarn/jitr/internal/cloud"
	"github.com/SuYehTarn/jitr/internal/database"
	registrationDomain "github.com/SuYehTarn/jitr/internal/registration/domain"
	registrationHTTP "github.com/SuYehTarn/jitr/internal/registration/http"
	registrationRepository "github.com/SuYehTarn/jitr/internal/registration/repository"
	registrationService "github.com/SuYehTarn/jitr/internal/registration/service"
	registrationUseCase "github.com/SuYehTarn/jitr/internal/registration/usecase"
)

// RegistrationRepository returns the registration record store.
func (c *Container) RegistrationRepository() (registrationUseCase.RegistrationRepository, error) {
	var err error
	c.registrationRepoInit.Do(func() {
		c.registrationRepo, err = c.initRegistrationRepository()
		if err != nil {
			c.initErrors["registrationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationRepo"]; exists {
		return nil, storedErr
	}
	return c.registrationRepo, nil
}

// DeviceRegistry returns the device registry client.
// An empty REGISTRY_URL selects the in-process registry.
func (c *Container) DeviceRegistry() registrationUseCase.DeviceRegistry {
	c.deviceRegistryInit.Do(func() {
		if c.config.RegistryURL == "" {
			c.deviceRegistry = registrationService.NewLocalDeviceRegistry()
			return
		}
		c.deviceRegistry = registrationService.NewHTTPDeviceRegistry(
			c.config.RegistryURL,
			c.config.RegistryMaxRetries,
			c.Logger(),
		)
	})
	return c.deviceRegistry
}

// Vault returns the CA trust material vault.
func (c *Container) Vault(ctx context.Context) (registrationUseCase.Vault, error) {
	var err error
	c.vaultInit.Do(func() {
		c.vault, err = c.initVault(ctx)
		if err != nil {
			c.initErrors["vault"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vault"]; exists {
		return nil, storedErr
	}
	return c.vault, nil
}

// RegistrationUseCase returns the CA registration use case.
func (c *Container) RegistrationUseCase() (registrationUseCase.RegistrationUseCase, error) {
	var err error
	c.registrationUseCaseInit.Do(func() {
		c.registrationUseCase, err = c.initRegistrationUseCase()
		if err != nil {
			c.initErrors["registrationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationUseCase"]; exists {
		return nil, storedErr
	}
	return c.registrationUseCase, nil
}

// RegistrationHandler returns the HTTP handler for CA registration.
func (c *Container) RegistrationHandler() (*registrationHTTP.RegistrationHandler, error) {
	var err error
	c.registrationHandlerInit.Do(func() {
		c.registrationHandler, err = c.initRegistrationHandler()
		if err != nil {
			c.initErrors["registrationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationHandler"]; exists {
		return nil, storedErr
	}
	return c.registrationHandler, nil
}

func (c *Container) initRegistrationRepository() (registrationUseCase.RegistrationRepository, error) {
	if c.InMemory() {
		return registrationRepository.NewMemoryRegistrationRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for registration repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return registrationRepository.NewMySQLRegistrationRepository(db), nil
	case database.DriverPostgres:
		return registrationRepository.NewPostgreSQLRegistrationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVault(ctx context.Context) (registrationUseCase.Vault, error) {
	bucket, err := cloud.OpenBucket(ctx, c.config.VaultURL)
	if err != nil {
		return nil, err
	}

	keeper, err := cloud.OpenKeeper(ctx, c.config.VaultKeyURI)
	if err != nil {
		_ = bucket.Close()
		return nil, err
	}

	c.mu.Lock()
	c.vaultBucket = bucket
	c.vaultKeeper = keeper
	c.mu.Unlock()

	return registrationService.NewBlobVault(bucket, keeper), nil
}

func (c *Container) initRegistrationUseCase() (registrationUseCase.RegistrationUseCase, error) {
	repo, err := c.RegistrationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get registration repository for registration use case: %w", err)
	}

	vault, err := c.Vault(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get vault for registration use case: %w", err)
	}

	useCaseConfig := registrationUseCase.Config{
		Activator: registrationDomain.Activator{
			Address:       c.config.ActivatorAddress,
			RoleReference: c.config.ActivatorRoleReference,
			QueueURL:      c.config.ActivationQueueURL,
		},
		RoleReference:  c.config.ActivatorRoleReference,
		IntakeTarget:   c.config.EventIntakeURL(),
		MaxRetries:     c.config.RegistryMaxRetries,
		InitialBackoff: c.config.DispatchInitialBackoff,
		Timeout:        c.config.RegistrationTimeout,
	}

	baseUseCase := registrationUseCase.NewRegistrationUseCase(
		useCaseConfig,
		repo,
		c.DeviceRegistry(),
		vault,
		c.VerifierRegistry(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for registration use case: %w", err)
		}
		return registrationUseCase.NewRegistrationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initRegistrationHandler() (*registrationHTTP.RegistrationHandler, error) {
	useCase, err := c.RegistrationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get registration use case for registration handler: %w", err)
	}
	return registrationHTTP.NewRegistrationHandler(useCase, c.Logger()), nil
}
