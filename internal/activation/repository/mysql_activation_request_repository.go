package repository

import (
	"context"
	"database/sql"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	"github.com/SuYehTarn/jitr/internal/database"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
)

// MySQLActivationRequestRepository handles activation request persistence for MySQL.
type MySQLActivationRequestRepository struct {
	db *sql.DB
}

// NewMySQLActivationRequestRepository creates a new MySQLActivationRequestRepository.
func NewMySQLActivationRequestRepository(db *sql.DB) *MySQLActivationRequestRepository {
	return &MySQLActivationRequestRepository{db: db}
}

// Create inserts a new activation request.
func (r *MySQLActivationRequestRepository) Create(ctx context.Context, request *domain.ActivationRequest) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO activation_requests (id, correlation_id, ca_id, device_id, payload, status, retries,
			  last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := request.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, request.CorrelationID, request.CAID, request.DeviceID,
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
func (r *MySQLActivationRequestRepository) ExistsByCorrelationID(
	ctx context.Context,
	correlationID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM activation_requests WHERE correlation_id = ?)`
	if err := querier.QueryRowContext(ctx, query, correlationID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check activation request")
	}
	return exists, nil
}

// GetPending retrieves pending activation requests with limit.
func (r *MySQLActivationRequestRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*domain.ActivationRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, correlation_id, ca_id, device_id, payload, status, retries, last_error, processed_at,
			  created_at, updated_at
			  FROM activation_requests
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.ActivationRequestStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending activation requests")
	}
	defer rows.Close() //nolint:errcheck

	var requests []*domain.ActivationRequest
	for rows.Next() {
		var request domain.ActivationRequest
		var idBytes []byte

		err := rows.Scan(&idBytes, &request.CorrelationID, &request.CAID, &request.DeviceID,
			&request.Payload, &request.Status, &request.Retries, &request.LastError, &request.ProcessedAt,
			&request.CreatedAt, &request.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan activation request")
		}

		// Convert bytes back to UUID
		if err := request.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse activation request id")
		}

		requests = append(requests, &request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate activation requests")
	}

	return requests, nil
}

// Update updates the relay state of an activation request.
func (r *MySQLActivationRequestRepository) Update(ctx context.Context, request *domain.ActivationRequest) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE activation_requests
			  SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := request.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, request.Status, request.Retries, request.LastError,
		request.ProcessedAt, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update activation request")
	}
	return nil
}
