package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations for ledger data
type LedgerReader interface {
	// FindBalance returns the cached balance projection for an account.
	FindBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error)

	// FindLatestEntry returns the head of an account's chain, or nil if the account has no entries.
	FindLatestEntry(ctx context.Context, accountID string) (*domain.LedgerEntry, error)

	// ListEntries returns a page of entries, newest first, and a token for the next page.
	ListEntries(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// ListAccountIDs returns every account that has a ledger or a projection row.
	ListAccountIDs(ctx context.Context) ([]string, error)
}

// LedgerTransactionSupport defines ledger operations that run inside a caller's transaction.
// Entries are insert-only; there is no update or delete.
type LedgerTransactionSupport interface {
	// LockAccountInTx creates the projection row if needed and locks it for the rest of tx.
	LockAccountInTx(ctx context.Context, tx pgx.Tx, accountID string, now time.Time) (*domain.AccountBalance, error)

	// FindLatestEntryInTx returns the most recent entry of an account, or nil if there is none.
	FindLatestEntryInTx(ctx context.Context, tx pgx.Tx, accountID string) (*domain.LedgerEntry, error)

	// InsertEntryInTx appends an entry and fills in its store-assigned Seq.
	InsertEntryInTx(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error

	// UpdateProjectionInTx overwrites the cached balance of a locked account.
	UpdateProjectionInTx(ctx context.Context, tx pgx.Tx, balance domain.AccountBalance) error

	// SumByReferenceInTx sums the amounts of an account's entries carrying referenceID.
	SumByReferenceInTx(ctx context.Context, tx pgx.Tx, accountID, referenceID string) (decimal.Decimal, error)

	// ListAllEntriesInTx returns every entry of an account in chain order (createdAt, seq ascending)
	// under the caller's lock.
	ListAllEntriesInTx(ctx context.Context, tx pgx.Tx, accountID string) ([]domain.LedgerEntry, error)
}

// LedgerRepositoryFacade combines all ledger-related repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerTransactionSupport
}
