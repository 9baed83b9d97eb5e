package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// PostgreSQLRegistrationRepository implements registration persistence for PostgreSQL.
type PostgreSQLRegistrationRepository struct {
	db *sql.DB
}

// NewPostgreSQLRegistrationRepository creates a new PostgreSQLRegistrationRepository.
func NewPostgreSQLRegistrationRepository(db *sql.DB) *PostgreSQLRegistrationRepository {
	return &PostgreSQLRegistrationRepository{db: db}
}

// Upsert inserts the registration or updates the row of the same CA id.
func (p *PostgreSQLRegistrationRepository) Upsert(ctx context.Context, r *domain.Registration) error {
	querier := database.GetTx(ctx, p.db)

	actions, names, err := encodeLists(r)
	if err != nil {
		return err
	}

	query := `INSERT INTO registrations (` + registrationColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (ca_id) DO UPDATE
			  SET ca_key_id = EXCLUDED.ca_key_id, ca_certificate_id = EXCLUDED.ca_certificate_id,
			      ca_certificate_pem = EXCLUDED.ca_certificate_pem, registration_code = EXCLUDED.registration_code,
			      identity_name = EXCLUDED.identity_name, identity_reference = EXCLUDED.identity_reference,
			      identity_actions = EXCLUDED.identity_actions, verifier_names = EXCLUDED.verifier_names,
			      updated_at = EXCLUDED.updated_at`

	_, err = querier.ExecContext(
		ctx,
		query,
		r.ID,
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
func (p *PostgreSQLRegistrationRepository) GetByCAID(ctx context.Context, caID string) (*domain.Registration, error) {
	return p.getBy(ctx, "ca_id", caID)
}

// GetByKeyID returns the registration whose CA subject key id is keyID.
func (p *PostgreSQLRegistrationRepository) GetByKeyID(ctx context.Context, keyID string) (*domain.Registration, error) {
	return p.getBy(ctx, "ca_key_id", keyID)
}

func (p *PostgreSQLRegistrationRepository) getBy(
	ctx context.Context,
	column, value string,
) (*domain.Registration, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ` + column + ` = $1
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
func (p *PostgreSQLRegistrationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Registration, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + registrationColumns + ` FROM registrations
			  ORDER BY registered_at ASC, ca_id ASC LIMIT $1 OFFSET $2`

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
