package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// verifierUseCase serializes writes so the store and the registry apply them
// in the same order. Reads go to the registry only; writes made by other
// processes reach it through Refresh.
type verifierUseCase struct {
	writeMu   sync.Mutex
	txManager database.TxManager
	repo      VerifierRepository
	registry  Registry
	resolver  Resolver
	logger    *slog.Logger
	now       func() time.Time
}

// NewVerifierUseCase creates a VerifierUseCase.
func NewVerifierUseCase(
	txManager database.TxManager,
	repo VerifierRepository,
	registry Registry,
	resolver Resolver,
	logger *slog.Logger,
) VerifierUseCase {
	return &verifierUseCase{
		txManager: txManager,
		repo:      repo,
		registry:  registry,
		resolver:  resolver,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (v *verifierUseCase) List(ctx context.Context) ([]*domain.Verifier, error) {
	list := v.registry.List()
	out := make([]*domain.Verifier, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (v *verifierUseCase) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	verifier, err := v.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return &verifier, nil
}

func (v *verifierUseCase) Put(ctx context.Context, name string, ref domain.Reference) (*domain.Verifier, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidVerifierName
	}
	if err := v.resolver.Resolve(ref); err != nil {
		return nil, err
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	now := v.now()
	verifier := domain.Verifier{
		Name:      name,
		Reference: ref,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := v.registry.Get(name); err == nil {
		verifier.CreatedAt = existing.CreatedAt
	}

	if err := v.txManager.WithTx(ctx, func(ctx context.Context) error {
		return v.repo.Upsert(ctx, &verifier)
	}); err != nil {
		return nil, err
	}
	if err := v.registry.Put(verifier); err != nil {
		return nil, err
	}

	v.logger.Info("verifier bound",
		slog.String("name", name),
		slog.String("address", ref.Address),
	)

	return &verifier, nil
}

func (v *verifierUseCase) Delete(ctx context.Context, name string) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if err := v.txManager.WithTx(ctx, func(ctx context.Context) error {
		return v.repo.Delete(ctx, name)
	}); err != nil {
		return err
	}
	v.registry.Delete(name)

	v.logger.Info("verifier unbound", slog.String("name", name))
	return nil
}

func (v *verifierUseCase) Load(ctx context.Context, seeds []*domain.Verifier) error {
	stored, err := v.refresh(ctx)
	if err != nil {
		return err
	}

	deleted, err := v.repo.ListDeleted(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to load verifier tombstones")
	}

	known := make(map[string]bool, len(stored)+len(deleted))
	for _, s := range stored {
		known[s.Name] = true
	}
	for _, name := range deleted {
		known[name] = true
	}

	seeded := 0
	for _, seed := range seeds {
		if known[seed.Name] {
			v.logger.Debug("verifier seed skipped, name already managed by the store",
				slog.String("name", seed.Name),
			)
			continue
		}
		if _, err := v.Put(ctx, seed.Name, seed.Reference); err != nil {
			return apperrors.Wrapf(err, "failed to seed verifier %q", seed.Name)
		}
		seeded++
	}

	v.logger.Info("verifier registry loaded",
		slog.Int("stored", len(stored)),
		slog.Int("seeded", seeded),
		slog.Int("tombstoned", len(deleted)),
	)
	return nil
}

func (v *verifierUseCase) Refresh(ctx context.Context) error {
	_, err := v.refresh(ctx)
	return err
}

// refresh lists the store and replaces the registry under the write lock, so a
// concurrent Put is never overwritten by an older listing.
func (v *verifierUseCase) refresh(ctx context.Context) ([]*domain.Verifier, error) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	stored, err := v.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load verifiers")
	}

	before := make(map[string]domain.Reference)
	for _, current := range v.registry.List() {
		before[current.Name] = current.Reference
	}

	snapshot := make([]domain.Verifier, 0, len(stored))
	changed := len(stored) != len(before)
	for _, s := range stored {
		if ref, ok := before[s.Name]; !ok || ref != s.Reference {
			changed = true
		}
		snapshot = append(snapshot, *s)
	}
	v.registry.Replace(snapshot)

	if changed {
		v.logger.Info("verifier registry refreshed from store",
			slog.Int("previous", len(before)),
			slog.Int("current", len(snapshot)),
		)
	}
	return stored, nil
}

func (v *verifierUseCase) Watch(ctx context.Context, interval time.Duration) error {
	v.logger.Info("verifier registry refresh started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("verifier registry refresh stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
				v.logger.Error("failed to refresh verifier registry", slog.Any("error", err))
			}
		}
	}
}
