package app

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/SuYehTarn/jitr/internal/database"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
	verifierHTTP "github.com/SuYehTarn/jitr/internal/verifier/http"
	"github.com/SuYehTarn/jitr/internal/verifier/registry"
	verifierRepository "github.com/SuYehTarn/jitr/internal/verifier/repository"
	verifierService "github.com/SuYehTarn/jitr/internal/verifier/service"
	verifierUseCase "github.com/SuYehTarn/jitr/internal/verifier/usecase"
)

// VerifierRegistry returns the live verifier binding set shared by every component.
func (c *Container) VerifierRegistry() *registry.MemoryRegistry {
	c.verifierRegistryInit.Do(func() {
		c.verifierRegistry = registry.NewMemoryRegistry()
	})
	return c.verifierRegistry
}

// VerifierRepository returns the verifier binding store.
func (c *Container) VerifierRepository() (verifierUseCase.VerifierRepository, error) {
	var err error
	c.verifierRepoInit.Do(func() {
		c.verifierRepo, err = c.initVerifierRepository()
		if err != nil {
			c.initErrors["verifierRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifierRepo"]; exists {
		return nil, storedErr
	}
	return c.verifierRepo, nil
}

// Invoker returns the invoker dispatching to HTTP and builtin verifiers.
func (c *Container) Invoker() *verifierService.CapabilityInvoker {
	c.invokerInit.Do(func() {
		c.invoker = verifierService.NewCapabilityInvoker(
			verifierService.NewHTTPInvoker(cleanhttp.DefaultPooledClient(), c.Logger()),
			verifierService.NewBuiltinInvoker(),
		)
	})
	return c.invoker
}

// VerifierUseCase returns the verifier registry use case.
func (c *Container) VerifierUseCase() (verifierUseCase.VerifierUseCase, error) {
	var err error
	c.verifierUseCaseInit.Do(func() {
		c.verifierUseCase, err = c.initVerifierUseCase()
		if err != nil {
			c.initErrors["verifierUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifierUseCase"]; exists {
		return nil, storedErr
	}
	return c.verifierUseCase, nil
}

// VerifierHandler returns the HTTP handler for verifier bindings.
func (c *Container) VerifierHandler() (*verifierHTTP.VerifierHandler, error) {
	var err error
	c.verifierHandlerInit.Do(func() {
		c.verifierHandler, err = c.initVerifierHandler()
		if err != nil {
			c.initErrors["verifierHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifierHandler"]; exists {
		return nil, storedErr
	}
	return c.verifierHandler, nil
}

// LoadVerifiers fills the registry from the store and binds the configured
// seeds the store does not already manage.
func (c *Container) LoadVerifiers(ctx context.Context) error {
	useCase, err := c.VerifierUseCase()
	if err != nil {
		return fmt.Errorf("failed to get verifier use case for loading: %w", err)
	}

	seeds, err := c.config.VerifierSeeds()
	if err != nil {
		return err
	}

	verifiers := make([]*verifierDomain.Verifier, 0, len(seeds))
	for _, seed := range seeds {
		verifiers = append(verifiers, &verifierDomain.Verifier{
			Name: seed.Name,
			Reference: verifierDomain.Reference{
				Address:    seed.Reference,
				Permission: seed.Permission,
			},
		})
	}

	if err := useCase.Load(ctx, verifiers); err != nil {
		return fmt.Errorf("failed to load verifiers: %w", err)
	}
	return nil
}

// RefreshVerifiers fills the registry for a read-only command. Database
// drivers read the shared store without writing seeds; the memory driver has
// nothing shared to read, so the seeds are loaded in process.
func (c *Container) RefreshVerifiers(ctx context.Context) error {
	if c.InMemory() {
		return c.LoadVerifiers(ctx)
	}

	useCase, err := c.VerifierUseCase()
	if err != nil {
		return fmt.Errorf("failed to get verifier use case for refresh: %w", err)
	}
	if err := useCase.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh verifiers: %w", err)
	}
	return nil
}

// WatchVerifiers keeps the registry in step with the shared store until ctx is
// done. It returns immediately for the memory driver or a zero interval.
func (c *Container) WatchVerifiers(ctx context.Context) error {
	if c.InMemory() || c.config.VerifierRefreshInterval <= 0 {
		return nil
	}

	useCase, err := c.VerifierUseCase()
	if err != nil {
		return fmt.Errorf("failed to get verifier use case for refresh: %w", err)
	}
	return useCase.Watch(ctx, c.config.VerifierRefreshInterval)
}

func (c *Container) initVerifierRepository() (verifierUseCase.VerifierRepository, error) {
	if c.InMemory() {
		return verifierRepository.NewMemoryVerifierRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for verifier repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return verifierRepository.NewMySQLVerifierRepository(db), nil
	case database.DriverPostgres:
		return verifierRepository.NewPostgreSQLVerifierRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVerifierUseCase() (verifierUseCase.VerifierUseCase, error) {
	repo, err := c.VerifierRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier repository for verifier use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for verifier use case: %w", err)
	}

	baseUseCase := verifierUseCase.NewVerifierUseCase(
		txManager,
		repo,
		c.VerifierRegistry(),
		c.Invoker(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for verifier use case: %w", err)
		}
		return verifierUseCase.NewVerifierUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initVerifierHandler() (*verifierHTTP.VerifierHandler, error) {
	useCase, err := c.VerifierUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier use case for verifier handler: %w", err)
	}
	return verifierHTTP.NewVerifierHandler(useCase, c.Logger()), nil
}
