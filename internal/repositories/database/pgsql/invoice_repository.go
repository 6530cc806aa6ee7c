package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `
	invoice_id, invoice_number, status, submitter_id, amount, storage_key, rejection_reason,
	resubmitted_from, edit_history, current_reviewer_id, review_claimed_at, last_review_ping,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxInvoiceRepository struct {
	BaseRepository
}

func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryFacade {
	return &PgxInvoiceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv             domain.Invoice
		invoiceNumber   sql.NullString
		amount          decimal.NullDecimal
		rejection       sql.NullString
		resubmittedFrom sql.NullString
		reviewerID      sql.NullString
		claimedAt       sql.NullTime
		lastPing        sql.NullTime
	)
	err := row.Scan(
		&inv.InvoiceID,
		&invoiceNumber,
		&inv.Status,
		&inv.SubmitterID,
		&amount,
		&inv.StorageKey,
		&rejection,
		&resubmittedFrom,
		&inv.EditHistory,
		&reviewerID,
		&claimedAt,
		&lastPing,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.LastUpdatedAt,
		&inv.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = stringPtr(invoiceNumber)
	if amount.Valid {
		a := amount.Decimal
		inv.Amount = &a
	}
	inv.RejectionReason = stringPtr(rejection)
	inv.ResubmittedFrom = stringPtr(resubmittedFrom)
	inv.CurrentReviewerID = stringPtr(reviewerID)
	inv.ReviewClaimedAt = timePtr(claimedAt)
	inv.LastReviewPing = timePtr(lastPing)
	if inv.EditHistory == nil {
		inv.EditHistory = []domain.EditRecord{}
	}
	return &inv, nil
}

func nullAmount(a *decimal.Decimal) decimal.NullDecimal {
	if a == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *a, Valid: true}
}

func (r *PgxInvoiceRepository) findInvoice(ctx context.Context, q querier, invoiceID string, forUpdate bool) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return inv, nil
}

// FindInvoiceByID retrieves an invoice by its ID.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return r.findInvoice(ctx, r.Pool, invoiceID, false)
}

// FindInvoiceByIDForUpdate retrieves an invoice and holds its row lock until tx ends.
func (r *PgxInvoiceRepository) FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error) {
	return r.findInvoice(ctx, tx, invoiceID, true)
}

// SaveInvoice inserts a new invoice.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, inv domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	history := inv.EditHistory
	if history == nil {
		history = []domain.EditRecord{}
	}
	_, err := r.Pool.Exec(ctx, query,
		inv.InvoiceID,
		nullString(inv.InvoiceNumber),
		inv.Status,
		inv.SubmitterID,
		nullAmount(inv.Amount),
		inv.StorageKey,
		nullString(inv.RejectionReason),
		nullString(inv.ResubmittedFrom),
		history,
		nullString(inv.CurrentReviewerID),
		nullTime(inv.ReviewClaimedAt),
		nullTime(inv.LastReviewPing),
		inv.CreatedAt,
		inv.CreatedBy,
		inv.LastUpdatedAt,
		inv.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == "uq_invoices_resubmitted_from" {
			return fmt.Errorf("%w: invoice %s has already been resubmitted", apperrors.ErrConflict, *inv.ResubmittedFrom)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice %s already exists", apperrors.ErrDuplicate, inv.InvoiceID)
		}
		return fmt.Errorf("failed to save invoice %s: %w", inv.InvoiceID, err)
	}
	return nil
}

// ListInvoices retrieves invoices matching the filter, newest first.
func (r *PgxInvoiceRepository) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	var (
		conds []string
		args  []any
	)
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		conds = append(conds, "submitter_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ReviewerID != "" {
		args = append(args, filter.ReviewerID)
		conds = append(conds, "current_reviewer_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(filter.Limit, 20, 100), max(filter.Offset, 0))
	query += ` ORDER BY created_at DESC, invoice_id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	return r.queryInvoices(ctx, query, args...)
}

// ListStaleClaims retrieves in-review invoices whose last ping is older than cutoff, oldest first.
func (r *PgxInvoiceRepository) ListStaleClaims(ctx context.Context, cutoff time.Time, limit int) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE status = 'in_review' AND last_review_ping < $1
		ORDER BY last_review_ping
		LIMIT $2`
	return r.queryInvoices(ctx, query, cutoff, clampLimit(limit, 500, 5000))
}

func (r *PgxInvoiceRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// ListStorageKeys returns the object keys referenced by live invoices.
func (r *PgxInvoiceRepository) ListStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT storage_key FROM invoices WHERE storage_key <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect storage keys: %w", err)
	}
	return keys, nil
}

// classifyMiss decides why a guarded update matched no row.
func (r *PgxInvoiceRepository) classifyMiss(ctx context.Context, invoiceID string, whenExists error) error {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_id = $1)`, invoiceID).Scan(&exists)
	if err != nil {
		if isInvalidID(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to check invoice %s: %w", invoiceID, err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return whenExists
}

func (r *PgxInvoiceRepository) guardedReturning(ctx context.Context, invoiceID string, onMiss error, query string, args ...any) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.Pool.QueryRow(ctx, query, args...))
	if err == nil {
		return inv, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyMiss(ctx, invoiceID, onMiss)
	}
	if isInvalidID(err) {
		return nil, apperrors.ErrNotFound
	}
	return nil, fmt.Errorf("failed to update invoice %s: %w", invoiceID, err)
}

// ClaimInvoice moves a claimable, unclaimed invoice to in_review in a single conditional update.
func (r *PgxInvoiceRepository) ClaimInvoice(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = 'in_review', current_reviewer_id = $2, review_claimed_at = $3, last_review_ping = $3,
		    last_updated_at = $3, last_updated_by = $2
		WHERE invoice_id = $1 AND status IN ('pending', 're_review') AND current_reviewer_id IS NULL
		RETURNING ` + invoiceColumns
	return r.guardedReturning(ctx, invoiceID, apperrors.ErrConflict, query, invoiceID, reviewerID, now)
}

// TouchReviewPing refreshes the lease only for the reviewer holding it.
func (r *PgxInvoiceRepository) TouchReviewPing(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	query := `
		UPDATE invoices
		SET last_review_ping = $3
		WHERE invoice_id = $1 AND status = 'in_review' AND current_reviewer_id = $2
		RETURNING ` + invoiceColumns
	return r.guardedReturning(ctx, invoiceID, apperrors.ErrNotOwner, query, invoiceID, reviewerID, now)
}

// ReleaseClaim reverts an in-review invoice to pending. An empty reviewerID releases any holder.
func (r *PgxInvoiceRepository) ReleaseClaim(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	actor := reviewerID
	if actor == "" {
		actor = domain.SystemActorID
	}
	query := `
		UPDATE invoices
		SET status = 'pending', current_reviewer_id = NULL, review_claimed_at = NULL, last_review_ping = NULL,
		    last_updated_at = $3, last_updated_by = $4
		WHERE invoice_id = $1 AND status = 'in_review' AND ($2 = '' OR current_reviewer_id = $2)
		RETURNING ` + invoiceColumns
	return r.guardedReturning(ctx, invoiceID, apperrors.ErrConflict, query, invoiceID, reviewerID, now, actor)
}

// ReclaimStaleClaim resets a claim only if it is still in review and still stale at cutoff.
func (r *PgxInvoiceRepository) ReclaimStaleClaim(ctx context.Context, invoiceID string, cutoff, now time.Time) (bool, error) {
	query := `
		UPDATE invoices
		SET status = 'pending', current_reviewer_id = NULL, review_claimed_at = NULL, last_review_ping = NULL,
		    last_updated_at = $3, last_updated_by = $4
		WHERE invoice_id = $1 AND status = 'in_review' AND last_review_ping < $2;
	`
	tag, err := r.Pool.Exec(ctx, query, invoiceID, cutoff, now, domain.SystemActorID)
	if err != nil {
		return false, fmt.Errorf("failed to reclaim invoice %s: %w", invoiceID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateInvoiceInTx writes the mutable fields of inv if the guard still holds.
func (r *PgxInvoiceRepository) UpdateInvoiceInTx(ctx context.Context, tx pgx.Tx, inv domain.Invoice, guard portsrepo.InvoiceGuard) error {
	query := `
		UPDATE invoices
		SET status = $2, amount = $3, rejection_reason = $4, edit_history = $5,
		    current_reviewer_id = $6, review_claimed_at = $7, last_review_ping = $8,
		    last_updated_at = $9, last_updated_by = $10
		WHERE invoice_id = $1 AND status = $11 AND ($12::text IS NULL OR current_reviewer_id = $12);
	`
	history := inv.EditHistory
	if history == nil {
		history = []domain.EditRecord{}
	}
	tag, err := tx.Exec(ctx, query,
		inv.InvoiceID,
		inv.Status,
		nullAmount(inv.Amount),
		nullString(inv.RejectionReason),
		history,
		nullString(inv.CurrentReviewerID),
		nullTime(inv.ReviewClaimedAt),
		nullTime(inv.LastReviewPing),
		inv.LastUpdatedAt,
		inv.LastUpdatedBy,
		guard.Status,
		nullString(guard.ReviewerID),
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", inv.InvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s is no longer %s", apperrors.ErrConflict, inv.InvoiceID, guard.Status)
	}
	return nil
}

// DeleteInvoiceInTx removes an invoice row.
func (r *PgxInvoiceRepository) DeleteInvoiceInTx(ctx context.Context, tx pgx.Tx, invoiceID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
