package services

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalancePosterSvc is the only writer of ledger entries. Every method runs inside the caller's
// transaction so the ledger effect commits or rolls back with the business transition.
type BalancePosterSvc interface {
	// Apply appends one chained entry and updates the cached projection.
	Apply(ctx context.Context, tx pgx.Tx, posting domain.LedgerPosting) (*domain.LedgerEntry, error)

	// Deduct posts -amount as an invoice_deduction.
	Deduct(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, invoiceID, actorID string) (*domain.LedgerEntry, error)

	// Refund posts +amount with the given refund type (invoice_refund or invoice_delete_refund).
	Refund(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, txnType domain.LedgerTransactionType, referenceID, actorID string) (*domain.LedgerEntry, error)

	// Credit posts +amount as an advance_credit.
	Credit(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, requestID, actorID string) (*domain.LedgerEntry, error)

	// OutstandingDeduction returns the net amount currently deducted for an invoice (>= 0).
	OutstandingDeduction(ctx context.Context, tx pgx.Tx, accountID, invoiceID string) (decimal.Decimal, error)
}

// BalanceReaderSvc defines balance and ledger queries
type BalanceReaderSvc interface {
	// GetBalance returns the current balance of an account.
	GetBalance(ctx context.Context, actor domain.Actor, accountID string) (*domain.AccountBalance, error)

	// ListEntries returns a page of an account's ledger, newest first.
	ListEntries(ctx context.Context, actor domain.Actor, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// VerifyChain replays an account's ledger and compares it with the cached balance.
	VerifyChain(ctx context.Context, accountID string) (*domain.ChainReport, error)

	// ListAccountIDs returns every account known to the ledger.
	ListAccountIDs(ctx context.Context) ([]string, error)
}

// BalanceAdminSvc defines administrator corrections
type BalanceAdminSvc interface {
	// AdjustBalance posts a manual adjustment in its own transaction.
	AdjustBalance(ctx context.Context, actor domain.Actor, accountID string, amount decimal.Decimal, notes string) (*domain.LedgerEntry, error)

	// RebuildProjection rewrites the cached balance from a ledger replay.
	RebuildProjection(ctx context.Context, accountID string) (*domain.ChainReport, error)
}

// BalanceSvcFacade combines all balance-related service interfaces
type BalanceSvcFacade interface {
	BalancePosterSvc
	BalanceReaderSvc
	BalanceAdminSvc
}
