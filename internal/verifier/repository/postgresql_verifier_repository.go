// Package repository persists verifier bindings so the registry survives restarts.
//
// PostgreSQL and MySQL implementations share the verifiers table layout:
//   - name: primary key
//   - address, permission: the reference
//   - created_at, updated_at: timestamps
//
// Deleted names are kept in verifier_tombstones until bound again, so seeds
// from configuration never undo an explicit delete.
//
// All methods honour a transaction carried in the context via database.GetTx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// PostgreSQLVerifierRepository implements verifier persistence for PostgreSQL.
type PostgreSQLVerifierRepository struct {
	db *sql.DB
}

// NewPostgreSQLVerifierRepository creates a new PostgreSQLVerifierRepository.
func NewPostgreSQLVerifierRepository(db *sql.DB) *PostgreSQLVerifierRepository {
	return &PostgreSQLVerifierRepository{db: db}
}

// Upsert creates the binding or replaces its reference, keeping created_at.
func (p *PostgreSQLVerifierRepository) Upsert(ctx context.Context, v *domain.Verifier) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO verifiers (name, address, permission, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (name) DO UPDATE
			  SET address = EXCLUDED.address, permission = EXCLUDED.permission, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		v.Name,
		v.Reference.Address,
		v.Reference.Permission,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert verifier")
	}

	if _, err := querier.ExecContext(ctx, `DELETE FROM verifier_tombstones WHERE name = $1`, v.Name); err != nil {
		return apperrors.Wrap(err, "failed to clear verifier tombstone")
	}
	return nil
}

// Get returns the binding stored under name.
func (p *PostgreSQLVerifierRepository) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT name, address, permission, created_at, updated_at FROM verifiers WHERE name = $1`

	var v domain.Verifier
	err := querier.QueryRowContext(ctx, query, name).Scan(
		&v.Name,
		&v.Reference.Address,
		&v.Reference.Permission,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVerifierNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get verifier")
	}
	return &v, nil
}

// List returns every binding ordered by name.
func (p *PostgreSQLVerifierRepository) List(ctx context.Context) ([]*domain.Verifier, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT name, address, permission, created_at, updated_at FROM verifiers ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list verifiers")
	}
	defer rows.Close() //nolint:errcheck

	verifiers := make([]*domain.Verifier, 0)
	for rows.Next() {
		var v domain.Verifier
		if err := rows.Scan(
			&v.Name,
			&v.Reference.Address,
			&v.Reference.Permission,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan verifier")
		}
		verifiers = append(verifiers, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate verifiers")
	}

	return verifiers, nil
}

// Delete removes the binding and leaves a tombstone so configured seeds do not
// bring it back. Removing an absent name succeeds.
func (p *PostgreSQLVerifierRepository) Delete(ctx context.Context, name string) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `INSERT INTO verifier_tombstones (name, deleted_at) VALUES ($1, $2)
			  ON CONFLICT (name) DO UPDATE SET deleted_at = EXCLUDED.deleted_at`, name, time.Now().UTC()); err != nil {
		return apperrors.Wrap(err, "failed to record verifier tombstone")
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM verifiers WHERE name = $1`, name); err != nil {
		return apperrors.Wrap(err, "failed to delete verifier")
	}
	return nil
}

// ListDeleted returns the names removed by Delete and not bound again since.
func (p *PostgreSQLVerifierRepository) ListDeleted(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, `SELECT name FROM verifier_tombstones ORDER BY name ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list verifier tombstones")
	}
	defer rows.Close() //nolint:errcheck

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan verifier tombstone")
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate verifier tombstones")
	}

	return names, nil
}
