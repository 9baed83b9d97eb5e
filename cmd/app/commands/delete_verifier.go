package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	verifierUseCase "github.com/SuYehTarn/jitr/internal/verifier/usecase"
)

// RunDeleteVerifier removes a verifier binding from the store and leaves a
// tombstone so configured seeds do not restore it. Removing an absent name
// succeeds. Running servers drop the binding on their next registry refresh;
// events for registrations that still name it are then rejected as config drift.
func RunDeleteVerifier(
	ctx context.Context,
	verifierUseCase verifierUseCase.VerifierUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, format string,
) error {
	if err := verifierUseCase.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete verifier: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]interface{}{"name": name, "deleted": true}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Verifier %s deleted\n", name)
	}

	logger.Info("verifier deleted", slog.String("name", name))
	return nil
}
