package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	"github.com/SuYehTarn/jitr/internal/database"
)

// RelayConfig holds relay use case configuration.
type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// relayUseCase publishes pending activation requests to the activation queue.
type relayUseCase struct {
	config    RelayConfig
	txManager database.TxManager
	queue     ActivationRequestRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewRelayUseCase creates a new RelayUseCase.
func NewRelayUseCase(
	config RelayConfig,
	txManager database.TxManager,
	queue ActivationRequestRepository,
	publisher Publisher,
	logger *slog.Logger,
) RelayUseCase {
	return &relayUseCase{
		config:    config,
		txManager: txManager,
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// Start runs the relay loop until ctx is cancelled.
func (r *relayUseCase) Start(ctx context.Context) error {
	r.logger.Info("starting activation relay",
		slog.Duration("interval", r.config.Interval),
		slog.Int("batch_size", r.config.BatchSize),
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping activation relay")
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessRequests(ctx); err != nil {
				r.logger.Error("failed to relay activation requests", slog.Any("error", err))
			}
		}
	}
}

// ProcessRequests claims a batch of pending requests in a transaction and
// publishes each. A request that keeps failing is marked failed after
// MaxRetries attempts; its correlation id stays taken, so a redelivered
// event is still suppressed as a duplicate.
func (r *relayUseCase) ProcessRequests(ctx context.Context) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		requests, err := r.queue.GetPending(ctx, r.config.BatchSize)
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			return nil
		}

		r.logger.Info("relaying activation requests", slog.Int("count", len(requests)))

		for _, request := range requests {
			if err := r.publisher.Publish(ctx, request); err != nil {
				r.logger.Error("failed to publish activation request",
					slog.String("activation_id", request.ID.String()),
					slog.String("correlation_id", request.CorrelationID),
					slog.Any("error", err),
				)

				request.Retries++
				errorMsg := err.Error()
				request.LastError = &errorMsg

				if request.Retries >= r.config.MaxRetries {
					request.Status = domain.ActivationRequestStatusFailed
					r.logger.Error("activation request failed permanently",
						slog.String("activation_id", request.ID.String()),
						slog.Int("retries", request.Retries),
					)
				}

				if err := r.queue.Update(ctx, request); err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			request.Status = domain.ActivationRequestStatusPublished
			request.ProcessedAt = &now

			if err := r.queue.Update(ctx, request); err != nil {
				return err
			}
		}

		return nil
	})
}
