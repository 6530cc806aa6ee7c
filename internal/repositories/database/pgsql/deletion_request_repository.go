package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deletionRequestColumns = `
	request_id, invoice_id, requested_by, reason, status, reviewed_by, reviewed_at, rejection_reason,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxDeletionRequestRepository struct {
	BaseRepository
}

func newPgxDeletionRequestRepository(pool *pgxpool.Pool) portsrepo.DeletionRequestRepositoryFacade {
	return &PgxDeletionRequestRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DeletionRequestRepositoryFacade = (*PgxDeletionRequestRepository)(nil)

func scanDeletionRequest(row pgx.Row) (*domain.InvoiceDeletionRequest, error) {
	var (
		dr         domain.InvoiceDeletionRequest
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
		rejection  sql.NullString
	)
	err := row.Scan(
		&dr.RequestID,
		&dr.InvoiceID,
		&dr.RequestedBy,
		&dr.Reason,
		&dr.Status,
		&reviewedBy,
		&reviewedAt,
		&rejection,
		&dr.CreatedAt,
		&dr.CreatedBy,
		&dr.LastUpdatedAt,
		&dr.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	dr.ReviewedBy = stringPtr(reviewedBy)
	dr.ReviewedAt = timePtr(reviewedAt)
	dr.RejectionReason = stringPtr(rejection)
	return &dr, nil
}

// SaveDeletionRequest inserts a new request. The partial unique index on pending
// requests turns a second pending request for the same invoice into ErrConflict.
func (r *PgxDeletionRequestRepository) SaveDeletionRequest(ctx context.Context, dr domain.InvoiceDeletionRequest) error {
	query := `INSERT INTO invoice_deletion_requests (` + deletionRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.Pool.Exec(ctx, query,
		dr.RequestID,
		dr.InvoiceID,
		dr.RequestedBy,
		dr.Reason,
		dr.Status,
		nullString(dr.ReviewedBy),
		nullTime(dr.ReviewedAt),
		nullString(dr.RejectionReason),
		dr.CreatedAt,
		dr.CreatedBy,
		dr.LastUpdatedAt,
		dr.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice %s already has a pending deletion request", apperrors.ErrConflict, dr.InvoiceID)
		}
		return fmt.Errorf("failed to save deletion request %s: %w", dr.RequestID, err)
	}
	return nil
}

func (r *PgxDeletionRequestRepository) find(ctx context.Context, q querier, requestID string) (*domain.InvoiceDeletionRequest, error) {
	query := `SELECT ` + deletionRequestColumns + ` FROM invoice_deletion_requests WHERE request_id = $1`
	dr, err := scanDeletionRequest(q.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find deletion request %s: %w", requestID, err)
	}
	return dr, nil
}

// FindDeletionRequestByID retrieves a single request.
func (r *PgxDeletionRequestRepository) FindDeletionRequestByID(ctx context.Context, requestID string) (*domain.InvoiceDeletionRequest, error) {
	return r.find(ctx, r.Pool, requestID)
}

// ListDeletionRequests retrieves requests matching the filter, oldest first.
func (r *PgxDeletionRequestRepository) ListDeletionRequests(ctx context.Context, filter portsrepo.RequestFilter) ([]domain.InvoiceDeletionRequest, error) {
	query, args := requestListQuery(`SELECT `+deletionRequestColumns+` FROM invoice_deletion_requests`, "requested_by", filter)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deletion requests: %w", err)
	}
	defer rows.Close()

	requests := make([]domain.InvoiceDeletionRequest, 0)
	for rows.Next() {
		dr, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deletion request: %w", err)
		}
		requests = append(requests, *dr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deletion requests: %w", err)
	}
	return requests, nil
}

// ReviewDeletionRequestInTx closes a pending request with a single conditional update.
func (r *PgxDeletionRequestRepository) ReviewDeletionRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.InvoiceDeletionRequest, error) {
	query := `
		UPDATE invoice_deletion_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5,
		    last_updated_at = $4, last_updated_by = $3
		WHERE request_id = $1 AND status = 'pending'
		RETURNING ` + deletionRequestColumns
	dr, err := scanDeletionRequest(tx.QueryRow(ctx, query,
		review.RequestID, review.Status(), review.ReviewerID, review.ReviewedAt, nullString(review.RejectionReason)))
	if err == nil {
		return dr, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if _, findErr := r.find(ctx, tx, review.RequestID); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: deletion request %s already reviewed", apperrors.ErrConflict, review.RequestID)
	}
	if isInvalidID(err) {
		return nil, apperrors.ErrNotFound
	}
	return nil, fmt.Errorf("failed to review deletion request %s: %w", review.RequestID, err)
}
