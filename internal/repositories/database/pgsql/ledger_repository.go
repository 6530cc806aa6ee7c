package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/SscSPs/invoice_review_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const ledgerEntryColumns = `
	entry_id, seq, account_id, amount, balance_before, balance_after, transaction_type,
	reference_id, notes, created_by, created_at`

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e           domain.LedgerEntry
		referenceID sql.NullString
	)
	err := row.Scan(
		&e.EntryID,
		&e.Seq,
		&e.AccountID,
		&e.Amount,
		&e.BalanceBefore,
		&e.BalanceAfter,
		&e.TransactionType,
		&referenceID,
		&e.Notes,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ReferenceID = stringPtr(referenceID)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func scanAccountBalance(row pgx.Row) (*domain.AccountBalance, error) {
	var (
		b           domain.AccountBalance
		lastEntryID sql.NullString
		lastEntryAt sql.NullTime
	)
	if err := row.Scan(&b.AccountID, &b.Balance, &lastEntryID, &lastEntryAt, &b.LastUpdatedAt); err != nil {
		return nil, err
	}
	b.LastEntryID = stringPtr(lastEntryID)
	b.LastEntryAt = timePtr(lastEntryAt)
	return &b, nil
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()
	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// FindBalance returns the cached balance projection for an account.
func (r *PgxLedgerRepository) FindBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error) {
	query := `SELECT account_id, balance, last_entry_id, last_entry_at, last_updated_at FROM account_balances WHERE account_id = $1`
	b, err := scanAccountBalance(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find balance for account %s: %w", accountID, err)
	}
	return b, nil
}

// ListEntries returns a page of entries, newest first, using a (created_at, seq) cursor.
func (r *PgxLedgerRepository) ListEntries(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	limit = clampLimit(limit, 20, 100)
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastSeq, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.Validationf("invalid nextToken: %v", decodeErr)
		}
		query := `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
			WHERE account_id = $1 AND (created_at, seq) < ($2, $3)
			ORDER BY created_at DESC, seq DESC
			LIMIT $4`
		rows, err = r.Pool.Query(ctx, query, accountID, lastCreatedAt, lastSeq, fetchLimit)
	} else {
		query := `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
			WHERE account_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2`
		rows, err = r.Pool.Query(ctx, query, accountID, fetchLimit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query ledger entries for account %s: %w", accountID, err)
	}

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, nil, err
	}

	var newNextToken *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.Seq)
		newNextToken = &token
	}
	return entries, newNextToken, nil
}

func (r *PgxLedgerRepository) listAll(ctx context.Context, q querier, accountID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE account_id = $1 ORDER BY created_at, seq`
	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for account %s: %w", accountID, err)
	}
	return collectEntries(rows)
}

// ListAllEntriesInTx returns every entry of an account in chain order, inside tx.
func (r *PgxLedgerRepository) ListAllEntriesInTx(ctx context.Context, tx pgx.Tx, accountID string) ([]domain.LedgerEntry, error) {
	return r.listAll(ctx, tx, accountID)
}

// ListAccountIDs returns every account that has a ledger or a projection row.
func (r *PgxLedgerRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT account_id FROM account_balances
		UNION
		SELECT DISTINCT account_id FROM ledger_entries
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect account ids: %w", err)
	}
	return ids, nil
}

// LockAccountInTx creates the projection row on first use and locks it for the rest of tx.
func (r *PgxLedgerRepository) LockAccountInTx(ctx context.Context, tx pgx.Tx, accountID string, now time.Time) (*domain.AccountBalance, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO account_balances (account_id, balance, last_updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (account_id) DO NOTHING`, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure balance row for account %s: %w", accountID, err)
	}

	query := `SELECT account_id, balance, last_entry_id, last_entry_at, last_updated_at
		FROM account_balances WHERE account_id = $1 FOR UPDATE`
	b, err := scanAccountBalance(tx.QueryRow(ctx, query, accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance row for account %s: %w", accountID, err)
	}
	return b, nil
}

// FindLatestEntry returns the most recent entry of an account, or nil if there is none.
func (r *PgxLedgerRepository) FindLatestEntry(ctx context.Context, accountID string) (*domain.LedgerEntry, error) {
	return r.findLatest(ctx, r.Pool, accountID)
}

// FindLatestEntryInTx returns the most recent entry of an account, or nil if there is none.
func (r *PgxLedgerRepository) FindLatestEntryInTx(ctx context.Context, tx pgx.Tx, accountID string) (*domain.LedgerEntry, error) {
	return r.findLatest(ctx, tx, accountID)
}

func (r *PgxLedgerRepository) findLatest(ctx context.Context, q querier, accountID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`
	e, err := scanLedgerEntry(q.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest entry for account %s: %w", accountID, err)
	}
	return e, nil
}

// InsertEntryInTx appends an entry and fills in its sequence number.
func (r *PgxLedgerRepository) InsertEntryInTx(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			entry_id, account_id, amount, balance_before, balance_after, transaction_type,
			reference_id, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`
	err := tx.QueryRow(ctx, query,
		entry.EntryID,
		entry.AccountID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.TransactionType,
		nullString(entry.ReferenceID),
		entry.Notes,
		entry.CreatedBy,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// UpdateProjectionInTx overwrites the cached balance of a locked account.
func (r *PgxLedgerRepository) UpdateProjectionInTx(ctx context.Context, tx pgx.Tx, balance domain.AccountBalance) error {
	tag, err := tx.Exec(ctx, `
		UPDATE account_balances
		SET balance = $2, last_entry_id = $3, last_entry_at = $4, last_updated_at = $5
		WHERE account_id = $1`,
		balance.AccountID,
		balance.Balance,
		nullString(balance.LastEntryID),
		nullTime(balance.LastEntryAt),
		balance.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", balance.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: balance row for account %s", apperrors.ErrNotFound, balance.AccountID)
	}
	return nil
}

// SumByReferenceInTx sums an account's entries that reference referenceID.
func (r *PgxLedgerRepository) SumByReferenceInTx(ctx context.Context, tx pgx.Tx, accountID, referenceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE account_id = $1 AND reference_id = $2`, accountID, referenceID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum entries for reference %s: %w", referenceID, err)
	}
	return sum, nil
}
