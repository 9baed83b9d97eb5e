package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SuYehTarn/jitr/internal/app"
	"github.com/SuYehTarn/jitr/internal/config"
)

// RunWorker starts the activation relay, which publishes queued activation
// requests to the activation topic until SIGINT/SIGTERM is received.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting activation relay worker", slog.String("version", version))

	defer closeContainer(container, logger)

	if container.InMemory() {
		return errors.New("the worker needs a database driver; the server runs the relay for the memory driver")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	relay, err := container.RelayUseCase(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize activation relay: %w", err)
	}

	if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("activation relay error: %w", err)
	}

	logger.Info("activation relay worker stopped")
	return nil
}
