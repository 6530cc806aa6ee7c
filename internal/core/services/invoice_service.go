package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type invoiceService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	balance     portssvc.BalancePosterSvc
}

// NewInvoiceService creates the invoice service implementing the review-claim protocol.
func NewInvoiceService(txManager portsrepo.TransactionManager, invoiceRepo portsrepo.InvoiceRepositoryFacade, balance portssvc.BalancePosterSvc, options ...ServiceOption) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		BaseService: newBaseService(options...),
		txManager:   txManager,
		invoiceRepo: invoiceRepo,
		balance:     balance,
	}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

func (s *invoiceService) GetInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, inv.SubmitterID) {
		return nil, fmt.Errorf("%w: invoice belongs to another user", apperrors.ErrForbidden)
	}
	return inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, actor domain.Actor, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.Validationf("unknown invoice status '%s'", filter.Status)
	}
	if !actor.CanReview() {
		filter.SubmitterID = actor.ID
	}
	return s.invoiceRepo.ListInvoices(ctx, filter)
}

func (s *invoiceService) newInvoice(actor domain.Actor, input domain.NewInvoiceInput) (*domain.Invoice, error) {
	number := ""
	if input.InvoiceNumber != nil {
		number = strings.TrimSpace(*input.InvoiceNumber)
	}
	if err := validateInput(submissionInput{StorageKey: strings.TrimSpace(input.StorageKey), InvoiceNumber: number}); err != nil {
		return nil, err
	}
	if input.Amount != nil {
		if err := validateMoney("amount", *input.Amount); err != nil {
			return nil, err
		}
	}

	now := s.now()
	return &domain.Invoice{
		InvoiceID:     uuid.NewString(),
		InvoiceNumber: optionalString(number),
		Status:        domain.InvoicePending,
		SubmitterID:   actor.ID,
		Amount:        input.Amount,
		StorageKey:    strings.TrimSpace(input.StorageKey),
		EditHistory:   []domain.EditRecord{},
		AuditFields:   domain.NewAuditFields(actor.ID, now),
	}, nil
}

func (s *invoiceService) SubmitInvoice(ctx context.Context, actor domain.Actor, input domain.NewInvoiceInput) (*domain.Invoice, error) {
	inv, err := s.newInvoice(actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveInvoice(ctx, *inv); err != nil {
		s.LogError(ctx, err, "Failed to save invoice", slog.String("submitter_id", actor.ID))
		return nil, err
	}
	s.LogInfo(ctx, "Invoice submitted", slog.String("invoice_id", inv.InvoiceID))
	s.recordActivity(ctx, domain.EntityInvoice, inv.InvoiceID, "submitted", actor.ID, "")
	return inv, nil
}

func (s *invoiceService) ResubmitInvoice(ctx context.Context, actor domain.Actor, rejectedInvoiceID string, input domain.NewInvoiceInput) (*domain.Invoice, error) {
	rejected, err := s.invoiceRepo.FindInvoiceByID(ctx, rejectedInvoiceID)
	if err != nil {
		return nil, err
	}
	if rejected.SubmitterID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the submitter can resubmit an invoice", apperrors.ErrForbidden)
	}
	if rejected.Status != domain.InvoiceRejected {
		return nil, fmt.Errorf("%w: only rejected invoices can be resubmitted (status is %s)", apperrors.ErrConflict, rejected.Status)
	}

	inv, err := s.newInvoice(domain.Actor{ID: rejected.SubmitterID, Role: actor.Role}, input)
	if err != nil {
		return nil, err
	}
	inv.ResubmittedFrom = &rejected.InvoiceID
	inv.CreatedBy, inv.LastUpdatedBy = actor.ID, actor.ID
	if err := s.invoiceRepo.SaveInvoice(ctx, *inv); err != nil {
		if !isBusinessError(err) {
			s.LogError(ctx, err, "Failed to save resubmitted invoice", slog.String("rejected_invoice_id", rejectedInvoiceID))
		}
		return nil, err
	}
	s.LogInfo(ctx, "Invoice resubmitted",
		slog.String("invoice_id", inv.InvoiceID),
		slog.String("rejected_invoice_id", rejectedInvoiceID))
	s.recordActivity(ctx, domain.EntityInvoice, inv.InvoiceID, "resubmitted", actor.ID, "replaces "+rejectedInvoiceID)
	return inv, nil
}

func (s *invoiceService) ClaimInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	current, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if current.SubmitterID == actor.ID {
		return nil, fmt.Errorf("%w: you cannot review your own invoice", apperrors.ErrForbidden)
	}

	var inv *domain.Invoice
	err = s.withRetry(ctx, "claim invoice", func(ctx context.Context) error {
		var claimErr error
		inv, claimErr = s.invoiceRepo.ClaimInvoice(ctx, invoiceID, actor.ID, s.now())
		return claimErr
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: invoice is already claimed or not awaiting review", apperrors.ErrConflict)
		}
		return nil, err
	}

	s.LogInfo(ctx, "Invoice claimed for review", slog.String("invoice_id", invoiceID), slog.String("reviewer_id", actor.ID))
	s.recordActivity(ctx, domain.EntityInvoice, invoiceID, "claimed", actor.ID, "")
	s.notifyClaimState(ctx, inv)
	return inv, nil
}

func (s *invoiceService) PingReview(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	var inv *domain.Invoice
	err := s.withRetry(ctx, "ping review", func(ctx context.Context) error {
		var pingErr error
		inv, pingErr = s.invoiceRepo.TouchReviewPing(ctx, invoiceID, actor.ID, s.now())
		return pingErr
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotOwner) {
			return nil, fmt.Errorf("%w: your claim on this invoice has ended", apperrors.ErrNotOwner)
		}
		return nil, err
	}
	return inv, nil
}

// ReleaseInvoice returns an in-review invoice to pending. Releasing an invoice that is not in
// review returns its current state; releasing another reviewer's claim requires an administrator.
func (s *invoiceService) ReleaseInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}

	inv, err := s.release(ctx, invoiceID, actor.ID)
	if err == nil {
		s.afterRelease(ctx, actor, inv, "released")
		return inv, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}

	current, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.InvoiceInReview {
		return current, nil
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: invoice is claimed by another reviewer", apperrors.ErrNotOwner)
	}

	inv, err = s.release(ctx, invoiceID, "")
	if errors.Is(err, apperrors.ErrConflict) {
		// Someone else released or decided it in between.
		return s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	}
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Review claim force-released",
		slog.String("invoice_id", invoiceID),
		slog.String("admin_id", actor.ID),
		slog.String("previous_reviewer_id", derefString(current.CurrentReviewerID)))
	s.afterRelease(ctx, actor, inv, "force_released")
	return inv, nil
}

func (s *invoiceService) release(ctx context.Context, invoiceID, reviewerID string) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.withRetry(ctx, "release invoice", func(ctx context.Context) error {
		var releaseErr error
		inv, releaseErr = s.invoiceRepo.ReleaseClaim(ctx, invoiceID, reviewerID, s.now())
		return releaseErr
	})
	return inv, err
}

func (s *invoiceService) afterRelease(ctx context.Context, actor domain.Actor, inv *domain.Invoice, action string) {
	s.recordActivity(ctx, domain.EntityInvoice, inv.InvoiceID, action, actor.ID, "")
	s.notifyClaimState(ctx, inv)
}

func (s *invoiceService) DecideInvoice(ctx context.Context, actor domain.Actor, invoiceID string, outcome domain.InvoiceStatus, payload domain.DecisionPayload) (*domain.Invoice, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if !outcome.IsDecisionOutcome() {
		return nil, apperrors.Validationf("outcome must be one of accepted, rejected, re_review")
	}
	reason := strings.TrimSpace(payload.RejectionReason)
	if outcome == domain.InvoiceRejected {
		if err := validateRejectionReason(reason); err != nil {
			return nil, err
		}
	}
	if payload.Amount != nil {
		if err := validateMoney("amount", *payload.Amount); err != nil {
			return nil, err
		}
	}

	var decided *domain.Invoice
	err := s.withRetry(ctx, "decide invoice", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		inv, err := s.invoiceRepo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsClaimedBy(actor.ID) {
			return fmt.Errorf("%w: you do not hold the review claim on this invoice", apperrors.ErrNotOwner)
		}

		now := s.now()
		if payload.Amount != nil && (inv.Amount == nil || !inv.Amount.Equal(*payload.Amount)) {
			amount := *payload.Amount
			inv.Amount = &amount
			inv.EditHistory = append(inv.EditHistory, domain.EditRecord{EditorID: actor.ID, EditedAt: now, Field: "amount"})
		}
		if outcome == domain.InvoiceAccepted && (inv.Amount == nil || !inv.Amount.IsPositive()) {
			return fmt.Errorf("%w: an accepted invoice needs a positive amount", apperrors.ErrInvalidAmount)
		}

		inv.Status = outcome
		inv.RejectionReason = nil
		if outcome == domain.InvoiceRejected {
			inv.RejectionReason = &reason
		}
		inv.ClearLease()
		inv.LastUpdatedAt = now
		inv.LastUpdatedBy = actor.ID

		reviewer := actor.ID
		if err := s.invoiceRepo.UpdateInvoiceInTx(ctx, tx, *inv, portsrepo.InvoiceGuard{Status: domain.InvoiceInReview, ReviewerID: &reviewer}); err != nil {
			return err
		}
		if outcome == domain.InvoiceAccepted {
			if _, err := s.balance.Deduct(ctx, tx, inv.SubmitterID, *inv.Amount, inv.InvoiceID, actor.ID); err != nil {
				return err
			}
		}
		if err := s.txManager.Commit(ctx, tx); err != nil {
			return err
		}
		decided = inv
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.LogError(ctx, err, "Failed to decide invoice", slog.String("invoice_id", invoiceID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Invoice decided",
		slog.String("invoice_id", invoiceID),
		slog.String("outcome", string(outcome)),
		slog.String("reviewer_id", actor.ID))
	s.recordActivity(ctx, domain.EntityInvoice, invoiceID, "decided:"+string(outcome), actor.ID, reason)
	s.notifyDecision(ctx, decided)
	return decided, nil
}

// ReopenInvoice sends an accepted or rejected invoice back to re_review. Reopening an accepted
// invoice refunds its outstanding deduction so a later acceptance deducts exactly once overall.
func (s *invoiceService) ReopenInvoice(ctx context.Context, actor domain.Actor, invoiceID string, reason string) (*domain.Invoice, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if err := validateInput(deletionReasonInput{Reason: reason}); err != nil {
		return nil, err
	}

	var (
		reopened *domain.Invoice
		refunded decimal.Decimal
	)
	err := s.withRetry(ctx, "reopen invoice", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		inv, err := s.invoiceRepo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		previous := inv.Status
		if !previous.IsReopenable() {
			return fmt.Errorf("%w: only accepted or rejected invoices can be reopened (status is %s)", apperrors.ErrConflict, previous)
		}

		refunded = decimal.Zero
		if previous == domain.InvoiceAccepted {
			outstanding, err := s.balance.OutstandingDeduction(ctx, tx, inv.SubmitterID, inv.InvoiceID)
			if err != nil {
				return err
			}
			if outstanding.IsPositive() {
				if _, err := s.balance.Refund(ctx, tx, inv.SubmitterID, outstanding, domain.TxnInvoiceRefund, inv.InvoiceID, actor.ID); err != nil {
					return err
				}
				refunded = outstanding
			}
		}

		inv.Status = domain.InvoiceReReview
		inv.RejectionReason = nil
		inv.LastUpdatedAt = s.now()
		inv.LastUpdatedBy = actor.ID
		if err := s.invoiceRepo.UpdateInvoiceInTx(ctx, tx, *inv, portsrepo.InvoiceGuard{Status: previous}); err != nil {
			return err
		}
		if err := s.txManager.Commit(ctx, tx); err != nil {
			return err
		}
		reopened = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Invoice reopened",
		slog.String("invoice_id", invoiceID),
		slog.String("refunded", refunded.String()),
		slog.String("admin_id", actor.ID))
	s.recordActivity(ctx, domain.EntityInvoice, invoiceID, "reopened", actor.ID, reason)
	s.notify(ctx, reopened.SubmitterID, ports.NotifyInvoiceReReview, map[string]string{
		"invoiceId": reopened.InvoiceID,
		"refunded":  utils.FormatAmount(refunded),
	})
	return reopened, nil
}

func (s *invoiceService) AdvancePayout(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var advanced *domain.Invoice
	err := s.withRetry(ctx, "advance payout", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		inv, err := s.invoiceRepo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		previous := inv.Status
		next, ok := domain.NextPayoutStatus(previous)
		if !ok {
			return fmt.Errorf("%w: an invoice in status %s has no next payout step", apperrors.ErrConflict, previous)
		}
		inv.Status = next
		inv.LastUpdatedAt = s.now()
		inv.LastUpdatedBy = actor.ID
		if err := s.invoiceRepo.UpdateInvoiceInTx(ctx, tx, *inv, portsrepo.InvoiceGuard{Status: previous}); err != nil {
			return err
		}
		if err := s.txManager.Commit(ctx, tx); err != nil {
			return err
		}
		advanced = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, domain.EntityInvoice, invoiceID, "payout:"+string(advanced.Status), actor.ID, "")
	return advanced, nil
}

func (s *invoiceService) notifyClaimState(ctx context.Context, inv *domain.Invoice) {
	s.notify(ctx, inv.SubmitterID, ports.NotifyInvoiceClaimState, map[string]string{
		"invoiceId":  inv.InvoiceID,
		"status":     string(inv.Status),
		"reviewerId": derefString(inv.CurrentReviewerID),
	})
}

func (s *invoiceService) notifyDecision(ctx context.Context, inv *domain.Invoice) {
	payload := map[string]string{"invoiceId": inv.InvoiceID, "status": string(inv.Status)}
	var kind ports.NotificationKind
	switch inv.Status {
	case domain.InvoiceAccepted:
		kind = ports.NotifyInvoiceAccepted
		payload["amount"] = utils.FormatOptionalAmount(inv.Amount)
	case domain.InvoiceRejected:
		kind = ports.NotifyInvoiceRejected
		payload["reason"] = derefString(inv.RejectionReason)
	default:
		kind = ports.NotifyInvoiceReReview
	}
	s.notify(ctx, inv.SubmitterID, kind, payload)
}

// isBusinessError reports the expected outcomes that callers handle and should not be logged as failures.
func isBusinessError(err error) bool {
	for _, target := range []error{
		apperrors.ErrNotFound, apperrors.ErrValidation, apperrors.ErrConflict, apperrors.ErrNotOwner,
		apperrors.ErrInvalidAmount, apperrors.ErrInsufficientPrecision, apperrors.ErrForbidden, apperrors.ErrDuplicate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
