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

// MySQLVerifierRepository implements verifier persistence for MySQL.
type MySQLVerifierRepository struct {
	db *sql.DB
}

// NewMySQLVerifierRepository creates a new MySQLVerifierRepository.
func NewMySQLVerifierRepository(db *sql.DB) *MySQLVerifierRepository {
	return &MySQLVerifierRepository{db: db}
}

// Upsert creates the binding or replaces its reference, keeping created_at.
func (m *MySQLVerifierRepository) Upsert(ctx context.Context, v *domain.Verifier) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO verifiers (name, address, permission, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  address = VALUES(address), permission = VALUES(permission), updated_at = VALUES(updated_at)`

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

	if _, err := querier.ExecContext(ctx, `DELETE FROM verifier_tombstones WHERE name = ?`, v.Name); err != nil {
		return apperrors.Wrap(err, "failed to clear verifier tombstone")
	}
	return nil
}

// Get returns the binding stored under name.
func (m *MySQLVerifierRepository) Get(ctx context.Context, name string) (*domain.Verifier, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT name, address, permission, created_at, updated_at FROM verifiers WHERE name = ?`

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
func (m *MySQLVerifierRepository) List(ctx context.Context) ([]*domain.Verifier, error) {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLVerifierRepository) Delete(ctx context.Context, name string) error {
	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(ctx, `INSERT INTO verifier_tombstones (name, deleted_at) VALUES (?, ?)
			  ON DUPLICATE KEY UPDATE deleted_at = VALUES(deleted_at)`, name, time.Now().UTC()); err != nil {
		return apperrors.Wrap(err, "failed to record verifier tombstone")
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM verifiers WHERE name = ?`, name); err != nil {
		return apperrors.Wrap(err, "failed to delete verifier")
	}
	return nil
}

// ListDeleted returns the names removed by Delete and not bound again since.
func (m *MySQLVerifierRepository) ListDeleted(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

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
