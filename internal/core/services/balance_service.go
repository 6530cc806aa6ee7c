package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/utils"
	"github.com/SscSPs/invoice_review_app/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type balanceService struct {
	BaseService
	txManager  portsrepo.TransactionManager
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewBalanceService creates the balance service. It is the only writer of ledger entries.
func NewBalanceService(txManager portsrepo.TransactionManager, ledgerRepo portsrepo.LedgerRepositoryFacade, options ...ServiceOption) portssvc.BalanceSvcFacade {
	return &balanceService{
		BaseService: newBaseService(options...),
		txManager:   txManager,
		ledgerRepo:  ledgerRepo,
	}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

func (s *balanceService) Apply(ctx context.Context, tx pgx.Tx, posting domain.LedgerPosting) (*domain.LedgerEntry, error) {
	if posting.AccountID == "" {
		return nil, apperrors.Validationf("account id is required")
	}
	if !posting.Type.IsValid() {
		return nil, apperrors.Validationf("unknown transaction type '%s'", posting.Type)
	}
	if posting.Amount.IsZero() {
		return nil, apperrors.Validationf("amount must not be zero")
	}
	if !domain.HasExactScale(posting.Amount) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInsufficientPrecision, posting.Amount.String())
	}
	if err := accounting.CheckSign(posting.Type, posting.Amount); err != nil {
		return nil, apperrors.Validationf("%v", err)
	}

	now := s.now()
	balance, err := s.ledgerRepo.LockAccountInTx(ctx, tx, posting.AccountID, now)
	if err != nil {
		return nil, err
	}
	latest, err := s.ledgerRepo.FindLatestEntryInTx(ctx, tx, posting.AccountID)
	if err != nil {
		return nil, err
	}

	before := decimal.Zero
	if latest != nil {
		before = latest.BalanceAfter
	}
	if err := checkProjection(*balance, latest); err != nil {
		s.LogError(ctx, err, "Ledger head disagrees with cached balance",
			slog.String("account_id", posting.AccountID),
			slog.String("cached_balance", balance.Balance.String()),
			slog.String("ledger_balance", before.String()))
		return nil, err
	}

	// Keep (createdAt, seq) ordering monotonic even if clocks disagree between instances.
	createdAt := now
	if latest != nil && createdAt.Before(latest.CreatedAt) {
		createdAt = latest.CreatedAt
	}

	entry := domain.LedgerEntry{
		EntryID:         uuid.NewString(),
		AccountID:       posting.AccountID,
		Amount:          posting.Amount,
		BalanceBefore:   before,
		BalanceAfter:    accounting.NextBalance(before, posting.Amount),
		TransactionType: posting.Type,
		ReferenceID:     posting.ReferenceID,
		Notes:           posting.Notes,
		CreatedBy:       posting.ActorID,
		CreatedAt:       createdAt,
	}
	if err := s.ledgerRepo.InsertEntryInTx(ctx, tx, &entry); err != nil {
		return nil, err
	}

	entryID, entryAt := entry.EntryID, entry.CreatedAt
	err = s.ledgerRepo.UpdateProjectionInTx(ctx, tx, domain.AccountBalance{
		AccountID:     posting.AccountID,
		Balance:       entry.BalanceAfter,
		LastEntryID:   &entryID,
		LastEntryAt:   &entryAt,
		LastUpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.LogDebug(ctx, "Ledger entry applied",
		slog.String("account_id", entry.AccountID),
		slog.String("entry_id", entry.EntryID),
		slog.String("type", string(entry.TransactionType)),
		slog.String("amount", entry.Amount.String()),
		slog.String("balance_after", entry.BalanceAfter.String()))
	return &entry, nil
}

// checkProjection verifies that the cached balance row still points at the ledger head.
func checkProjection(balance domain.AccountBalance, latest *domain.LedgerEntry) error {
	if latest == nil {
		if !balance.Balance.IsZero() || balance.LastEntryID != nil {
			return fmt.Errorf("%w: account %s has a cached balance but no entries", apperrors.ErrChainMismatch, balance.AccountID)
		}
		return nil
	}
	if !balance.Balance.Equal(latest.BalanceAfter) {
		return fmt.Errorf("%w: account %s cached %s, ledger head %s", apperrors.ErrChainMismatch,
			balance.AccountID, balance.Balance.String(), latest.BalanceAfter.String())
	}
	if balance.LastEntryID == nil || *balance.LastEntryID != latest.EntryID {
		return fmt.Errorf("%w: account %s cached head differs from entry %s", apperrors.ErrChainMismatch, balance.AccountID, latest.EntryID)
	}
	return nil
}

func (s *balanceService) Deduct(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, invoiceID, actorID string) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deduction must be greater than zero", apperrors.ErrInvalidAmount)
	}
	return s.post(ctx, tx, accountID, amount, domain.TxnInvoiceDeduction, invoiceID, actorID, "invoice accepted")
}

func (s *balanceService) Refund(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, txnType domain.LedgerTransactionType, referenceID, actorID string) (*domain.LedgerEntry, error) {
	var notes string
	switch txnType {
	case domain.TxnInvoiceRefund:
		notes = "invoice reopened"
	case domain.TxnInvoiceDeleteRefund:
		notes = "invoice deleted"
	default:
		return nil, apperrors.Validationf("'%s' is not a refund type", txnType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund must be greater than zero", apperrors.ErrInvalidAmount)
	}
	return s.post(ctx, tx, accountID, amount, txnType, referenceID, actorID, notes)
}

func (s *balanceService) Credit(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, requestID, actorID string) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit must be greater than zero", apperrors.ErrInvalidAmount)
	}
	return s.post(ctx, tx, accountID, amount, domain.TxnAdvanceCredit, requestID, actorID, "budget request approved")
}

func (s *balanceService) post(ctx context.Context, tx pgx.Tx, accountID string, magnitude decimal.Decimal, txnType domain.LedgerTransactionType, referenceID, actorID, notes string) (*domain.LedgerEntry, error) {
	amount, err := accounting.SignedAmount(txnType, magnitude)
	if err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	ref := referenceID
	return s.Apply(ctx, tx, domain.LedgerPosting{
		AccountID:   accountID,
		Amount:      amount,
		Type:        txnType,
		ReferenceID: &ref,
		Notes:       notes,
		ActorID:     actorID,
	})
}

func (s *balanceService) OutstandingDeduction(ctx context.Context, tx pgx.Tx, accountID, invoiceID string) (decimal.Decimal, error) {
	net, err := s.ledgerRepo.SumByReferenceInTx(ctx, tx, accountID, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	outstanding := net.Neg()
	if outstanding.IsNegative() {
		return decimal.Zero, nil
	}
	return outstanding, nil
}

func (s *balanceService) GetBalance(ctx context.Context, actor domain.Actor, accountID string) (*domain.AccountBalance, error) {
	if !canSee(actor, accountID) {
		return nil, fmt.Errorf("%w: balance of another user", apperrors.ErrForbidden)
	}
	balance, err := s.ledgerRepo.FindBalance(ctx, accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.AccountBalance{AccountID: accountID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *balanceService) ListEntries(ctx context.Context, actor domain.Actor, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	if !canSee(actor, accountID) {
		return nil, nil, fmt.Errorf("%w: ledger of another user", apperrors.ErrForbidden)
	}
	return s.ledgerRepo.ListEntries(ctx, accountID, limit, nextToken)
}

func (s *balanceService) ListAccountIDs(ctx context.Context) ([]string, error) {
	return s.ledgerRepo.ListAccountIDs(ctx)
}

// VerifyChain replays the ledger under the account lock so the replay and the cache are read together.
// The transaction is always rolled back; verification never writes.
func (s *balanceService) VerifyChain(ctx context.Context, accountID string) (*domain.ChainReport, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.txManager.Rollback(ctx, tx)

	balance, err := s.ledgerRepo.LockAccountInTx(ctx, tx, accountID, s.now())
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.ListAllEntriesInTx(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	report := domain.ReplayLedger(accountID, entries)
	report.CachedBalance = balance.Balance
	if !report.Consistent() {
		logger := s.GetLogger(ctx)
		args := []any{
			slog.String("account_id", accountID),
			slog.Int("entries", report.EntryCount),
			slog.String("replayed_balance", report.ReplayedBalance.String()),
			slog.String("cached_balance", report.CachedBalance.String()),
		}
		if report.Break != nil {
			args = append(args, slog.String("break_entry_id", report.Break.EntryID), slog.String("break_field", report.Break.Field))
		}
		logger.Error("Ledger chain verification failed", args...)
	}
	return &report, nil
}

func (s *balanceService) AdjustBalance(ctx context.Context, actor domain.Actor, accountID string, amount decimal.Decimal, notes string) (*domain.LedgerEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateInput(notesInput{Notes: notes}); err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err := s.withRetry(ctx, "adjust balance", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		entry, err = s.Apply(ctx, tx, domain.LedgerPosting{
			AccountID: accountID,
			Amount:    amount,
			Type:      domain.TxnAdjustment,
			Notes:     notes,
			ActorID:   actor.ID,
		})
		if err != nil {
			return err
		}
		return s.txManager.Commit(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Balance adjusted",
		slog.String("account_id", accountID),
		slog.String("amount", entry.Amount.String()),
		slog.String("admin_id", actor.ID))
	s.recordActivity(ctx, domain.EntityLedger, accountID, "adjusted", actor.ID, entry.Amount.String()+": "+notes)
	s.notify(ctx, accountID, ports.NotifyBalanceAdjusted, map[string]string{
		"entryId": entry.EntryID,
		"amount":  utils.FormatAmount(entry.Amount),
		"balance": utils.FormatAmount(entry.BalanceAfter),
	})
	return entry, nil
}

// RebuildProjection rewrites the cached balance from a replay of the ledger.
// The returned report describes the state found before the rewrite.
func (s *balanceService) RebuildProjection(ctx context.Context, accountID string) (*domain.ChainReport, error) {
	var report domain.ChainReport
	err := s.withRetry(ctx, "rebuild projection", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		now := s.now()
		balance, err := s.ledgerRepo.LockAccountInTx(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		entries, err := s.ledgerRepo.ListAllEntriesInTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		report = domain.ReplayLedger(accountID, entries)
		report.CachedBalance = balance.Balance
		if report.Break != nil {
			return fmt.Errorf("%w: entry %s breaks the chain; the ledger needs manual repair", apperrors.ErrChainMismatch, report.Break.EntryID)
		}

		rebuilt := domain.AccountBalance{AccountID: accountID, Balance: report.ReplayedBalance, LastUpdatedAt: now}
		if n := len(entries); n > 0 {
			head := entries[n-1]
			rebuilt.LastEntryID = &head.EntryID
			rebuilt.LastEntryAt = &head.CreatedAt
		}
		if err := s.ledgerRepo.UpdateProjectionInTx(ctx, tx, rebuilt); err != nil {
			return err
		}
		return s.txManager.Commit(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Balance projection rebuilt",
		slog.String("account_id", accountID),
		slog.String("previous_balance", report.CachedBalance.String()),
		slog.String("balance", report.ReplayedBalance.String()))
	return &report, nil
}
