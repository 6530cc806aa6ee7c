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
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type deletionRequestService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	requestRepo portsrepo.DeletionRequestRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	balance     portssvc.BalancePosterSvc
	objects     ports.ObjectStore
}

// NewDeletionRequestService creates the invoice deletion workflow service.
func NewDeletionRequestService(
	txManager portsrepo.TransactionManager,
	requestRepo portsrepo.DeletionRequestRepositoryFacade,
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	balance portssvc.BalancePosterSvc,
	objects ports.ObjectStore,
	options ...ServiceOption,
) portssvc.DeletionRequestSvcFacade {
	return &deletionRequestService{
		BaseService: newBaseService(options...),
		txManager:   txManager,
		requestRepo: requestRepo,
		invoiceRepo: invoiceRepo,
		balance:     balance,
		objects:     objects,
	}
}

var _ portssvc.DeletionRequestSvcFacade = (*deletionRequestService)(nil)

func (s *deletionRequestService) CreateDeletionRequest(ctx context.Context, actor domain.Actor, invoiceID string, reason string) (*domain.InvoiceDeletionRequest, error) {
	reason = strings.TrimSpace(reason)
	if err := validateInput(deletionReasonInput{Reason: reason}); err != nil {
		return nil, err
	}
	inv, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.SubmitterID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the submitter can request deletion of an invoice", apperrors.ErrForbidden)
	}

	request := domain.InvoiceDeletionRequest{
		RequestID:   uuid.NewString(),
		InvoiceID:   invoiceID,
		RequestedBy: actor.ID,
		Reason:      reason,
		Status:      domain.RequestPending,
		AuditFields: domain.NewAuditFields(actor.ID, s.now()),
	}
	if err := s.requestRepo.SaveDeletionRequest(ctx, request); err != nil {
		if !isBusinessError(err) {
			s.LogError(ctx, err, "Failed to save deletion request", slog.String("invoice_id", invoiceID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Deletion request created",
		slog.String("request_id", request.RequestID),
		slog.String("invoice_id", invoiceID))
	s.recordActivity(ctx, domain.EntityDeletionRequest, request.RequestID, "created", actor.ID, reason)
	return &request, nil
}

// ReviewDeletionRequest closes a pending request. On approval the invoice row, its stored object
// and any outstanding deduction are removed together; if the object cannot be deleted nothing changes.
func (s *deletionRequestService) ReviewDeletionRequest(ctx context.Context, actor domain.Actor, requestID string, decision domain.ReviewDecision, rejectionReason string) (*domain.InvoiceDeletionRequest, error) {
	rejectionReason = strings.TrimSpace(rejectionReason)
	if err := validateDecision(decision, rejectionReason); err != nil {
		return nil, err
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		reviewed  *domain.InvoiceDeletionRequest
		submitter string
		refunded  decimal.Decimal
	)
	err := s.withRetry(ctx, "review deletion request", func(ctx context.Context) error {
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer s.txManager.Rollback(ctx, tx)

		review := domain.RequestReview{
			RequestID:  requestID,
			ReviewerID: actor.ID,
			Decision:   decision,
			ReviewedAt: s.now(),
		}
		if decision == domain.DecisionReject {
			review.RejectionReason = &rejectionReason
		}
		dr, err := s.requestRepo.ReviewDeletionRequestInTx(ctx, tx, review)
		if err != nil {
			return err
		}

		submitter, refunded = dr.RequestedBy, decimal.Zero
		if decision == domain.DecisionApprove {
			owner, amount, err := s.deleteInvoice(ctx, tx, dr.InvoiceID, actor.ID)
			if err != nil {
				return err
			}
			if owner != "" {
				submitter = owner
			}
			refunded = amount
		}
		if err := s.txManager.Commit(ctx, tx); err != nil {
			return err
		}
		reviewed = dr
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.LogError(ctx, err, "Failed to review deletion request", slog.String("request_id", requestID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Deletion request reviewed",
		slog.String("request_id", requestID),
		slog.String("invoice_id", reviewed.InvoiceID),
		slog.String("decision", string(decision)),
		slog.String("refunded", refunded.String()))
	s.recordActivity(ctx, domain.EntityDeletionRequest, requestID, "reviewed:"+string(decision), actor.ID, rejectionReason)

	kind := ports.NotifyDeletionApproved
	if decision == domain.DecisionReject {
		kind = ports.NotifyDeletionRejected
	}
	s.notify(ctx, submitter, kind, map[string]string{
		"requestId": reviewed.RequestID,
		"invoiceId": reviewed.InvoiceID,
		"refunded":  utils.FormatAmount(refunded),
		"reason":    derefString(reviewed.RejectionReason),
	})
	return reviewed, nil
}

// deleteInvoice removes the invoice inside tx and returns its submitter and the amount refunded.
// An invoice that is already gone is not an error.
func (s *deletionRequestService) deleteInvoice(ctx context.Context, tx pgx.Tx, invoiceID, actorID string) (string, decimal.Decimal, error) {
	inv, err := s.invoiceRepo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.GetLogger(ctx).Warn("Invoice already deleted, closing request", slog.String("invoice_id", invoiceID))
		return "", decimal.Zero, nil
	}
	if err != nil {
		return "", decimal.Zero, err
	}
	if inv.Status == domain.InvoiceInReview {
		return "", decimal.Zero, fmt.Errorf("%w: invoice is under review; release the claim before deleting it", apperrors.ErrConflict)
	}

	if err := s.invoiceRepo.DeleteInvoiceInTx(ctx, tx, invoiceID); err != nil {
		return "", decimal.Zero, err
	}

	outstanding, err := s.balance.OutstandingDeduction(ctx, tx, inv.SubmitterID, invoiceID)
	if err != nil {
		return "", decimal.Zero, err
	}
	if outstanding.IsPositive() {
		if _, err := s.balance.Refund(ctx, tx, inv.SubmitterID, outstanding, domain.TxnInvoiceDeleteRefund, invoiceID, actorID); err != nil {
			return "", decimal.Zero, err
		}
	}

	if err := s.objects.Delete(ctx, inv.StorageKey); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
		return "", decimal.Zero, fmt.Errorf("%w: failed to delete stored object %s: %v", apperrors.ErrDependency, inv.StorageKey, err)
	}
	return inv.SubmitterID, outstanding, nil
}

func (s *deletionRequestService) GetDeletionRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.InvoiceDeletionRequest, error) {
	dr, err := s.requestRepo.FindDeletionRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if dr.RequestedBy != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: deletion request belongs to another user", apperrors.ErrForbidden)
	}
	return dr, nil
}

func (s *deletionRequestService) ListPendingDeletionRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.InvoiceDeletionRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.requestRepo.ListDeletionRequests(ctx, portsrepo.RequestFilter{Status: domain.RequestPending, Limit: limit, Offset: offset})
}
