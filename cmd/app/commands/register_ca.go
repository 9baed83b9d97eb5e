package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	registrationUseCase "github.com/SuYehTarn/jitr/internal/registration/usecase"
)

// registrationOutput is the JSON form of a registration.
type registrationOutput struct {
	ID              string   `json:"id"`
	CAID            string   `json:"ca_id"`
	CACertificateID string   `json:"ca_certificate_id"`
	Identity        string   `json:"identity"`
	Verifiers       []string `json:"verifiers"`
}

// RunRegisterCA registers the CA certificate stored at certificatePath and binds
// the selected verifiers to it. Registering the same CA again updates the record.
func RunRegisterCA(
	ctx context.Context,
	useCase registrationUseCase.RegistrationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	certificatePath, caID, verifiers, format string,
) error {
	certificatePEM, err := os.ReadFile(certificatePath) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("failed to read CA certificate: %w", err)
	}

	registration, err := useCase.Register(ctx, registrationUseCase.RegisterInput{
		CAID:           caID,
		CertificatePEM: string(certificatePEM),
		Verifiers:      parseVerifierSelection(verifiers),
	})
	if err != nil {
		return fmt.Errorf("failed to register CA: %w", err)
	}

	if format == "json" {
		output := registrationOutput{
			ID:              registration.ID.String(),
			CAID:            registration.CAID,
			CACertificateID: registration.CACertificateID,
			Identity:        registration.Identity.Name,
			Verifiers:       append([]string{}, registration.VerifierNames...),
		}
		if err := writeJSON(writer, output); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "CA %s registered\n", registration.CAID)
		_, _ = fmt.Fprintf(writer, "Certificate ID: %s\n", registration.CACertificateID)
		_, _ = fmt.Fprintf(writer, "Identity: %s\n", registration.Identity.Name)
		_, _ = fmt.Fprintf(writer, "Verifiers: %s\n", strings.Join(registration.VerifierNames, ", "))
	}

	logger.Info("CA registered",
		slog.String("ca_id", registration.CAID),
		slog.Int("verifiers", len(registration.VerifierNames)),
	)
	return nil
}
