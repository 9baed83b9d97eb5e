package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// MySQLRegistrationRepository implements registration persistence for MySQL.
type MySQLRegistrationRepository struct {
	db *sql.DB
}

// NewMySQLRegistrationRepository creates a new MySQLRegistrationRepository.
func NewMySQLRegistrationRepository(db *sql.DB) *MySQLRegistrationRepository {
	return &MySQLRegistrationRepository{db: db}
}

// Upsert inserts the registration or updates the row of the same CA id.
func (m *MySQLRegistrationRepository) Upsert(ctx context.Context, r *domain.Registration) error {
	querier := database.GetTx(ctx, m.db)

	actions, names, err := encodeLists(r)
	if err != nil {
		return err
	}

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := r.ID.MarshalBinary()
	if err != nil {
		return err
	}

	query := `INSERT INTO registrations (` + registrationColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			      ca_key_id = VALUES(ca_key_id), ca_certificate_id = VALUES(ca_certificate_id),
			      ca_certificate_pem = VALUES(ca_certificate_pem), registration_code = VALUES(registration_code),
			      identity_name = VALUES(identity_name), identity_reference = VALUES(identity_reference),
			      identity_actions = VALUES(identity_actions), verifier_names = VALUES(verifier_names),
			      updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
		r.CAID,
		r.CAKeyID,
		r.CACertificateID,
		r.CACertificatePEM,
		r.RegistrationCode,
		r.Identity.Name,
		r.Identity.Reference,
		actions,
		names,
		r.RegisteredAt,
		r.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert registration")
	}
	return nil
}

// GetByCAID returns the registration of caID.
func (m *MySQLRegistrationRepository) GetByCAID(ctx context.Context, caID string) (*domain.Registration, error) {
	return m.getBy(ctx, "ca_id", caID)
}

// GetByKeyID returns the registration whose CA subject key id is keyID.
func (m *MySQLRegistrationRepository) GetByKeyID(ctx context.Context, keyID string) (*domain.Registration, error) {
	return m.getBy(ctx, "ca_key_id", keyID)
}

func (m *MySQLRegistrationRepository) getBy(
	ctx context.Context,
	column, value string,
) (*domain.Registration, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ` + column + ` = ?
			  ORDER BY registered_at ASC LIMIT 1`

	r, err := scanRegistration(querier.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get registration")
	}
	return r, nil
}

// List returns registrations ordered by registration time.
func (m *MySQLRegistrationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Registration, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + registrationColumns + ` FROM registrations
			  ORDER BY registered_at ASC, ca_id ASC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list registrations")
	}
	defer rows.Close() //nolint:errcheck

	registrations := make([]*domain.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan registration")
		}
		registrations = append(registrations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate registrations")
	}

	return registrations, nil
}
