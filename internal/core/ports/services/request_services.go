package services

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BudgetRequestSvcFacade defines the budget request workflow
type BudgetRequestSvcFacade interface {
	// CreateBudgetRequest snapshots the current balance and records a pending request.
	CreateBudgetRequest(ctx context.Context, actor domain.Actor, amount decimal.Decimal, justification string) (*domain.BudgetRequest, error)

	// ReviewBudgetRequest approves or rejects a pending request exactly once.
	ReviewBudgetRequest(ctx context.Context, actor domain.Actor, requestID string, decision domain.ReviewDecision, rejectionReason string) (*domain.BudgetRequest, error)

	// GetBudgetRequest retrieves a request visible to the actor.
	GetBudgetRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.BudgetRequest, error)

	// ListPendingBudgetRequests lists requests awaiting review.
	ListPendingBudgetRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.BudgetRequest, error)

	// ListMyBudgetRequests lists the actor's own requests.
	ListMyBudgetRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.BudgetRequest, error)
}

// DeletionRequestSvcFacade defines the invoice deletion request workflow
type DeletionRequestSvcFacade interface {
	// CreateDeletionRequest records a pending request; a second pending request for the same invoice conflicts.
	CreateDeletionRequest(ctx context.Context, actor domain.Actor, invoiceID string, reason string) (*domain.InvoiceDeletionRequest, error)

	// ReviewDeletionRequest approves (deleting invoice, object and refunding) or rejects a pending request.
	ReviewDeletionRequest(ctx context.Context, actor domain.Actor, requestID string, decision domain.ReviewDecision, rejectionReason string) (*domain.InvoiceDeletionRequest, error)

	// GetDeletionRequest retrieves a request visible to the actor.
	GetDeletionRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.InvoiceDeletionRequest, error)

	// ListPendingDeletionRequests lists requests awaiting review.
	ListPendingDeletionRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.InvoiceDeletionRequest, error)
}
