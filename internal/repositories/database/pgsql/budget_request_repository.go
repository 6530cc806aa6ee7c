package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const budgetRequestColumns = `
	request_id, user_id, requested_amount, current_balance_at_request, justification, status,
	reviewer_id, reviewed_at, rejection_reason, created_at, created_by, last_updated_at, last_updated_by`

type PgxBudgetRequestRepository struct {
	BaseRepository
}

func newPgxBudgetRequestRepository(pool *pgxpool.Pool) portsrepo.BudgetRequestRepositoryFacade {
	return &PgxBudgetRequestRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BudgetRequestRepositoryFacade = (*PgxBudgetRequestRepository)(nil)

func scanBudgetRequest(row pgx.Row) (*domain.BudgetRequest, error) {
	var (
		br         domain.BudgetRequest
		reviewerID sql.NullString
		reviewedAt sql.NullTime
		rejection  sql.NullString
	)
	err := row.Scan(
		&br.RequestID,
		&br.UserID,
		&br.RequestedAmount,
		&br.CurrentBalanceAtRequest,
		&br.Justification,
		&br.Status,
		&reviewerID,
		&reviewedAt,
		&rejection,
		&br.CreatedAt,
		&br.CreatedBy,
		&br.LastUpdatedAt,
		&br.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	br.ReviewerID = stringPtr(reviewerID)
	br.ReviewedAt = timePtr(reviewedAt)
	br.RejectionReason = stringPtr(rejection)
	return &br, nil
}

// SaveBudgetRequest inserts a new request.
func (r *PgxBudgetRequestRepository) SaveBudgetRequest(ctx context.Context, br domain.BudgetRequest) error {
	query := `INSERT INTO budget_requests (` + budgetRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.Pool.Exec(ctx, query,
		br.RequestID,
		br.UserID,
		br.RequestedAmount,
		br.CurrentBalanceAtRequest,
		br.Justification,
		br.Status,
		nullString(br.ReviewerID),
		nullTime(br.ReviewedAt),
		nullString(br.RejectionReason),
		br.CreatedAt,
		br.CreatedBy,
		br.LastUpdatedAt,
		br.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: budget request %s", apperrors.ErrDuplicate, br.RequestID)
		}
		return fmt.Errorf("failed to save budget request %s: %w", br.RequestID, err)
	}
	return nil
}

func (r *PgxBudgetRequestRepository) find(ctx context.Context, q querier, requestID string) (*domain.BudgetRequest, error) {
	query := `SELECT ` + budgetRequestColumns + ` FROM budget_requests WHERE request_id = $1`
	br, err := scanBudgetRequest(q.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find budget request %s: %w", requestID, err)
	}
	return br, nil
}

// FindBudgetRequestByID retrieves a single request.
func (r *PgxBudgetRequestRepository) FindBudgetRequestByID(ctx context.Context, requestID string) (*domain.BudgetRequest, error) {
	return r.find(ctx, r.Pool, requestID)
}

// ListBudgetRequests retrieves requests matching the filter, oldest first.
func (r *PgxBudgetRequestRepository) ListBudgetRequests(ctx context.Context, filter portsrepo.RequestFilter) ([]domain.BudgetRequest, error) {
	query, args := requestListQuery(`SELECT `+budgetRequestColumns+` FROM budget_requests`, "user_id", filter)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget requests: %w", err)
	}
	defer rows.Close()

	requests := make([]domain.BudgetRequest, 0)
	for rows.Next() {
		br, err := scanBudgetRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget request: %w", err)
		}
		requests = append(requests, *br)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budget requests: %w", err)
	}
	return requests, nil
}

// ReviewBudgetRequestInTx closes a pending request with a single conditional update.
func (r *PgxBudgetRequestRepository) ReviewBudgetRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.BudgetRequest, error) {
	query := `
		UPDATE budget_requests
		SET status = $2, reviewer_id = $3, reviewed_at = $4, rejection_reason = $5,
		    last_updated_at = $4, last_updated_by = $3
		WHERE request_id = $1 AND status = 'pending'
		RETURNING ` + budgetRequestColumns
	br, err := scanBudgetRequest(tx.QueryRow(ctx, query,
		review.RequestID, review.Status(), review.ReviewerID, review.ReviewedAt, nullString(review.RejectionReason)))
	if err == nil {
		return br, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if _, findErr := r.find(ctx, tx, review.RequestID); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: budget request %s already reviewed", apperrors.ErrConflict, review.RequestID)
	}
	if isInvalidID(err) {
		return nil, apperrors.ErrNotFound
	}
	return nil, fmt.Errorf("failed to review budget request %s: %w", review.RequestID, err)
}

// requestListQuery appends the shared filter, ordering and paging of request listings.
func requestListQuery(base, userColumn string, filter portsrepo.RequestFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, userColumn+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	query := base
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(filter.Limit, 20, 100), max(filter.Offset, 0))
	query += ` ORDER BY created_at, request_id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return query, args
}
