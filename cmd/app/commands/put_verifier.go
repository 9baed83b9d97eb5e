package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
	verifierUseCase "github.com/SuYehTarn/jitr/internal/verifier/usecase"
)

// RunPutVerifier creates or replaces a verifier binding.
// The reference must resolve to an invocable verifier before it is stored.
func RunPutVerifier(
	ctx context.Context,
	verifierUseCase verifierUseCase.VerifierUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, reference, permission, format string,
) error {
	verifier, err := verifierUseCase.Put(ctx, name, domain.Reference{
		Address:    reference,
		Permission: permission,
	})
	if err != nil {
		return fmt.Errorf("failed to put verifier: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, toVerifierOutput(verifier)); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Verifier %s bound to %s\n", verifier.Name, verifier.Reference.Address)
	}

	logger.Info("verifier bound",
		slog.String("name", verifier.Name),
		slog.String("reference", verifier.Reference.Address),
	)
	return nil
}
