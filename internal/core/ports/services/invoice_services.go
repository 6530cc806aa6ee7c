package services

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
)

// InvoiceReaderSvc defines read operations for invoices
type InvoiceReaderSvc interface {
	// GetInvoice retrieves an invoice with its current claim state.
	GetInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error)

	// ListInvoices lists invoices by submitter, reviewer or status. Submitters only see their own.
	ListInvoices(ctx context.Context, actor domain.Actor, filter domain.InvoiceFilter) ([]domain.Invoice, error)
}

// InvoiceSubmissionSvc defines the submitter-side operations
type InvoiceSubmissionSvc interface {
	// SubmitInvoice creates a new pending invoice.
	SubmitInvoice(ctx context.Context, actor domain.Actor, input domain.NewInvoiceInput) (*domain.Invoice, error)

	// ResubmitInvoice creates a fresh pending invoice replacing a rejected one.
	ResubmitInvoice(ctx context.Context, actor domain.Actor, rejectedInvoiceID string, input domain.NewInvoiceInput) (*domain.Invoice, error)
}

// ReviewClaimSvc defines the single-reviewer claim protocol
type ReviewClaimSvc interface {
	// ClaimInvoice takes the review lease. Fails with apperrors.ErrConflict if someone else won.
	ClaimInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error)

	// PingReview refreshes the lease. Fails with apperrors.ErrNotOwner if the lease was lost.
	PingReview(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error)

	// ReleaseInvoice returns the invoice to pending. Safe to call repeatedly.
	ReleaseInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error)

	// DecideInvoice records the review outcome; acceptance deducts the amount atomically.
	DecideInvoice(ctx context.Context, actor domain.Actor, invoiceID string, outcome domain.InvoiceStatus, payload domain.DecisionPayload) (*domain.Invoice, error)
}

// InvoiceAdminSvc defines administrator-only transitions
type InvoiceAdminSvc interface {
	// ReopenInvoice sends an accepted or rejected invoice back to re_review.
	ReopenInvoice(ctx context.Context, actor domain.Actor, invoiceID string, reason string) (*domain.Invoice, error)

	// AdvancePayout moves an accepted invoice one step along the payout states.
	AdvancePayout(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error)
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceSubmissionSvc
	ReviewClaimSvc
	InvoiceAdminSvc
}
