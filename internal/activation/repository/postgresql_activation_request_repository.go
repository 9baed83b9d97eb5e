// Package repository provides the durable activation queue.
//
// PostgreSQL and MySQL share the activation_requests table. correlation_id is
// unique and is the deduplication key of certificate events. Pending rows are
// claimed with FOR UPDATE SKIP LOCKED so several relay workers can run.
package repository

import (
	"context"
	"database/sql"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
)

// PostgreSQLActivationRequestRepository handles activation request persistence for PostgreSQL.
type PostgreSQLActivationRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLActivationRequestRepository creates a new PostgreSQLActivationRequestRepository.
func NewPostgreSQLActivationRequestRepository(db *sql.DB) *PostgreSQLActivationRequestRepository {
	return &PostgreSQLActivationRequestRepository{db: db}
}

// Create inserts a new activation request.
func (r *PostgreSQLActivationRequestRepository) Create(ctx context.Context, request *domain.ActivationRequest) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO activation_requests (id, correlation_id, ca_id, device_id, payload, status, retries,
			  last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, request.ID, request.CorrelationID, request.CAID, request.DeviceID,
		request.Payload, request.Status, request.Retries, request.LastError, request.ProcessedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateActivation
		}
		return apperrors.Wrap(err, "failed to create activation request")
	}
	return nil
}

// ExistsByCorrelationID reports whether an activation request exists for correlationID.
func (r *PostgreSQLActivationRequestRepository) ExistsByCorrelationID(
	ctx context.Context,
	correlationID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM activation_requests WHERE correlation_id = $1)`
	if err := querier.QueryRowContext(ctx, query, correlationID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check activation request")
	}
	return exists, nil
}

// GetPending retrieves pending activation requests with limit.
func (r *PostgreSQLActivationRequestRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*domain.ActivationRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, correlation_id, ca_id, device_id, payload, status, retries, last_error, processed_at,
			  created_at, updated_at
			  FROM activation_requests
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.ActivationRequestStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending activation requests")
	}
	defer rows.Close() //nolint:errcheck

	var requests []*domain.ActivationRequest
	for rows.Next() {
		var request domain.ActivationRequest

		err := rows.Scan(&request.ID, &request.CorrelationID, &request.CAID, &request.DeviceID,
			&request.Payload, &request.Status, &request.Retries, &request.LastError, &request.ProcessedAt,
			&request.CreatedAt, &request.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan activation request")
		}

		requests = append(requests, &request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate activation requests")
	}

	return requests, nil
}

// Update updates the relay state of an activation request.
func (r *PostgreSQLActivationRequestRepository) Update(ctx context.Context, request *domain.ActivationRequest) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE activation_requests
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, request.Status, request.Retries, request.LastError,
		request.ProcessedAt, request.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update activation request")
	}
	return nil
}
