package repositories

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// RequestFilter selects budget or deletion requests. Empty fields do not filter.
type RequestFilter struct {
	UserID string
	Status domain.RequestStatus
	Limit  int
	Offset int
}

// BudgetRequestRepositoryFacade defines persistence for budget requests
type BudgetRequestRepositoryFacade interface {
	// SaveBudgetRequest persists a new pending request.
	SaveBudgetRequest(ctx context.Context, request domain.BudgetRequest) error

	// FindBudgetRequestByID retrieves a single request.
	FindBudgetRequestByID(ctx context.Context, requestID string) (*domain.BudgetRequest, error)

	// ListBudgetRequests retrieves requests matching the filter, oldest first.
	ListBudgetRequests(ctx context.Context, filter RequestFilter) ([]domain.BudgetRequest, error)

	// ReviewBudgetRequestInTx closes a pending request in one conditional update.
	// Returns apperrors.ErrConflict when the request is no longer pending.
	ReviewBudgetRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.BudgetRequest, error)
}

// DeletionRequestRepositoryFacade defines persistence for invoice deletion requests
type DeletionRequestRepositoryFacade interface {
	// SaveDeletionRequest persists a new pending request.
	// Returns apperrors.ErrConflict when the invoice already has a pending request.
	SaveDeletionRequest(ctx context.Context, request domain.InvoiceDeletionRequest) error

	// FindDeletionRequestByID retrieves a single request.
	FindDeletionRequestByID(ctx context.Context, requestID string) (*domain.InvoiceDeletionRequest, error)

	// ListDeletionRequests retrieves requests matching the filter, oldest first.
	ListDeletionRequests(ctx context.Context, filter RequestFilter) ([]domain.InvoiceDeletionRequest, error)

	// ReviewDeletionRequestInTx closes a pending request in one conditional update.
	// Returns apperrors.ErrConflict when the request is no longer pending.
	ReviewDeletionRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.InvoiceDeletionRequest, error)
}
