package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
	verifierDomain "github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// Config holds registration use case configuration.
type Config struct {
	// Activator is provisioned once per registration.
	Activator domain.Activator
	// RoleReference is the base reference scoped identities are derived from.
	RoleReference string
	// IntakeTarget is the address routing rules forward device events to.
	IntakeTarget string
	// MaxRetries bounds retries of a registry call that failed as unavailable.
	MaxRetries int
	// InitialBackoff is the first delay between retries.
	InitialBackoff time.Duration
	// Timeout bounds a whole registration.
	Timeout time.Duration
}

type registrationUseCase struct {
	config    Config
	repo      RegistrationRepository
	registry  DeviceRegistry
	vault     Vault
	verifiers VerifierRegistry
	group     singleflight.Group
	logger    *slog.Logger
}

// NewRegistrationUseCase creates a new RegistrationUseCase.
func NewRegistrationUseCase(
	config Config,
	repo RegistrationRepository,
	registry DeviceRegistry,
	vault Vault,
	verifiers VerifierRegistry,
	logger *slog.Logger,
) RegistrationUseCase {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	return &registrationUseCase{
		config:    config,
		repo:      repo,
		registry:  registry,
		vault:     vault,
		verifiers: verifiers,
		logger:    logger,
	}
}

// Register validates the input, then provisions the CA with the device
// registry and stores the record. Concurrent registrations of the same CA
// with the same verifier set share one execution. The shared execution is
// detached from every caller and bounded by the configured timeout; a caller
// that cancels stops waiting without failing the others.
func (r *registrationUseCase) Register(ctx context.Context, input RegisterInput) (*domain.Registration, error) {
	tm, err := domain.ParseTrustMaterial(input.CertificatePEM)
	if err != nil {
		return nil, err
	}

	caID := strings.TrimSpace(input.CAID)
	if caID == "" {
		caID = tm.Fingerprint
	}

	names, err := r.resolveVerifiers(input.Verifiers)
	if err != nil {
		return nil, err
	}

	key := caID + "|" + tm.Fingerprint + "|" + strings.Join(names, ",")
	detached := context.WithoutCancel(ctx)
	results := r.group.DoChan(key, func() (interface{}, error) {
		return r.register(detached, caID, tm, names)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.Debug("registration coalesced", slog.String("ca_id", caID))
		}
		return res.Val.(*domain.Registration), nil
	}
}

// resolveVerifiers binds the selection to names present in the registry now.
func (r *registrationUseCase) resolveVerifiers(selection domain.VerifierSelection) ([]string, error) {
	if selection.All {
		live := r.verifiers.List()
		names := make([]string, 0, len(live))
		for _, v := range live {
			names = append(names, v.Name)
		}
		sort.Strings(names)
		return names, nil
	}

	seen := make(map[string]struct{}, len(selection.Names))
	names := make([]string, 0, len(selection.Names))
	var unknown []string
	for _, name := range selection.Names {
		name = strings.TrimSpace(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if _, err := r.verifiers.Get(name); err != nil {
			unknown = append(unknown, name)
			continue
		}
		names = append(names, name)
	}

	if len(unknown) > 0 {
		return nil, apperrors.Wrapf(verifierDomain.ErrUnknownVerifier, "%s", strings.Join(unknown, ", "))
	}

	sort.Strings(names)
	return names, nil
}

func (r *registrationUseCase) register(
	ctx context.Context,
	caID string,
	tm *domain.TrustMaterial,
	names []string,
) (*domain.Registration, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	identity := domain.NewScopedIdentity(caID, r.config.RoleReference)
	logger := r.logger.With(slog.String("ca_id", caID), slog.String("identity", identity.Name))

	if err := r.retry(ctx, logger, "create_role", func() error {
		return r.registry.CreateRole(ctx, identity)
	}); err != nil {
		return nil, err
	}

	if err := r.retry(ctx, logger, "attach_role_policy", func() error {
		return r.registry.AttachRolePolicy(ctx, identity)
	}); err != nil {
		return nil, err
	}

	if err := r.retry(ctx, logger, "ensure_activator", func() error {
		return r.registry.EnsureActivator(ctx, identity, r.config.Activator)
	}); err != nil {
		return nil, err
	}

	var code string
	if err := r.retry(ctx, logger, "get_registration_code", func() (err error) {
		code, err = r.registry.GetRegistrationCode(ctx, identity)
		return err
	}); err != nil {
		return nil, err
	}

	var certificateID string
	if err := r.retry(ctx, logger, "register_ca_certificate", func() (err error) {
		certificateID, err = r.registry.RegisterCACertificate(ctx, identity, tm, code)
		return err
	}); err != nil {
		return nil, err
	}

	tags := map[string]string{domain.VerifiersTag: strings.Join(names, ",")}
	if err := r.retry(ctx, logger, "tag_resource", func() error {
		return r.registry.TagResource(ctx, identity, certificateID, tags)
	}); err != nil {
		return nil, err
	}

	rule := domain.NewRoutingRule(caID, certificateID, r.config.IntakeTarget)
	if err := r.retry(ctx, logger, "create_topic_rule", func() error {
		return r.registry.CreateTopicRule(ctx, identity, rule)
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.Registration{
		ID:               uuid.Must(uuid.NewV7()),
		CAID:             caID,
		CAKeyID:          tm.KeyID,
		CACertificateID:  certificateID,
		CACertificatePEM: tm.PEM,
		RegistrationCode: code,
		Identity:         identity,
		VerifierNames:    names,
		RegisteredAt:     now,
		UpdatedAt:        now,
	}

	if err := r.vault.Store(ctx, record); err != nil {
		return nil, apperrors.Wrap(err, "failed to archive trust material")
	}

	if err := r.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	stored, err := r.repo.GetByCAID(ctx, caID)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		logger.Warn("CA registered without verifiers, every device will be admitted")
	}
	logger.Info("CA registered",
		slog.String("ca_certificate_id", certificateID),
		slog.Any("verifiers", names),
	)

	return stored, nil
}

// retry runs op until it succeeds, fails with anything other than an
// unavailable registry, or the retry budget is spent.
func (r *registrationUseCase) retry(ctx context.Context, logger *slog.Logger, step string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialBackoff

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.config.MaxRetries, 0))), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !apperrors.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("device registry call failed, retrying",
			slog.String("step", step),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	})
}

func (r *registrationUseCase) Get(ctx context.Context, caID string) (*domain.Registration, error) {
	return r.repo.GetByCAID(ctx, caID)
}

func (r *registrationUseCase) Resolve(ctx context.Context, caID, keyID string) (*domain.Registration, error) {
	if caID != "" {
		return r.repo.GetByCAID(ctx, caID)
	}
	if keyID != "" {
		return r.repo.GetByKeyID(ctx, keyID)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (r *registrationUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Registration, error) {
	return r.repo.List(ctx, offset, limit)
}
