package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// InvoiceGuard is the precondition a guarded invoice write checks against the row's current state.
type InvoiceGuard struct {
	Status     domain.InvoiceStatus
	ReviewerID *string // nil means the reviewer column is not checked
}

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice with its current claim state.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoices retrieves invoices matching the filter, newest first.
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)

	// ListStaleClaims retrieves in-review invoices whose last ping is older than cutoff.
	ListStaleClaims(ctx context.Context, cutoff time.Time, limit int) ([]domain.Invoice, error)

	// ListStorageKeys returns the object keys referenced by live invoices.
	ListStorageKeys(ctx context.Context) ([]string, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice persists a new invoice.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// ClaimInvoice moves a claimable, unclaimed invoice to in_review in one conditional update.
	// Returns apperrors.ErrConflict when the precondition no longer holds.
	ClaimInvoice(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error)

	// TouchReviewPing refreshes the lease of the reviewer holding the claim.
	// Returns apperrors.ErrNotOwner when reviewerID does not hold it.
	TouchReviewPing(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error)

	// ReleaseClaim reverts an in-review invoice to pending. An empty reviewerID releases any holder.
	// Returns apperrors.ErrConflict when no in-review row matched.
	ReleaseClaim(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error)

	// ReclaimStaleClaim resets a claim only if it is still stale at cutoff.
	// Returns false when a concurrent ping or decision won.
	ReclaimStaleClaim(ctx context.Context, invoiceID string, cutoff, now time.Time) (bool, error)
}

// InvoiceTransactionSupport defines invoice operations that run inside a caller's transaction
type InvoiceTransactionSupport interface {
	// FindInvoiceByIDForUpdate selects an invoice and locks its row.
	FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error)

	// UpdateInvoiceInTx writes the mutable fields of invoice if the guard still holds.
	// Returns apperrors.ErrConflict when it does not.
	UpdateInvoiceInTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice, guard InvoiceGuard) error

	// DeleteInvoiceInTx removes an invoice row.
	DeleteInvoiceInTx(ctx context.Context, tx pgx.Tx, invoiceID string) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
	InvoiceTransactionSupport
}
