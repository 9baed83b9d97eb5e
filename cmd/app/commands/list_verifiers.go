package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
	verifierUseCase "github.com/SuYehTarn/jitr/internal/verifier/usecase"
)

// verifierOutput is the JSON form of a verifier binding. The permission is never printed.
type verifierOutput struct {
	Name          string `json:"name"`
	Reference     string `json:"reference"`
	HasPermission bool   `json:"has_permission"`
}

func toVerifierOutput(v *domain.Verifier) verifierOutput {
	return verifierOutput{
		Name:          v.Name,
		Reference:     v.Reference.Address,
		HasPermission: v.Reference.Permission != "",
	}
}

// RunListVerifiers prints the current verifier bindings ordered by name.
func RunListVerifiers(
	ctx context.Context,
	verifierUseCase verifierUseCase.VerifierUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	verifiers, err := verifierUseCase.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list verifiers: %w", err)
	}

	if format == "json" {
		output := make([]verifierOutput, 0, len(verifiers))
		for _, v := range verifiers {
			output = append(output, toVerifierOutput(v))
		}
		if err := writeJSON(writer, output); err != nil {
			return err
		}
	} else {
		if len(verifiers) == 0 {
			_, _ = fmt.Fprintln(writer, "No verifiers bound")
		}
		for _, v := range verifiers {
			_, _ = fmt.Fprintf(writer, "%s\t%s\n", v.Name, v.Reference.Address)
		}
	}

	logger.Debug("verifiers listed", slog.Int("count", len(verifiers)))
	return nil
}
