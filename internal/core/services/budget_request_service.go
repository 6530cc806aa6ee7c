package services

import (
	"context"
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

type budgetRequestService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	requestRepo portsrepo.BudgetRequestRepositoryFacade
	ledgerRepo  portsrepo.LedgerReader
	balance     portssvc.BalancePosterSvc
}

// NewBudgetRequestService creates the budget request workflow service.
func NewBudgetRequestService(
	txManager portsrepo.TransactionManager,
	requestRepo portsrepo.BudgetRequestRepositoryFacade,
	ledgerRepo portsrepo.LedgerReader,
	balance portssvc.BalancePosterSvc,
	options ...ServiceOption,
) portssvc.BudgetRequestSvcFacade {
	return &budgetRequestService{
		BaseService: newBaseService(options...),
		txManager:   txManager,
		requestRepo: requestRepo,
		ledgerRepo:  ledgerRepo,
		balance:     balance,
	}
}

var _ portssvc.BudgetRequestSvcFacade = (*budgetRequestService)(nil)

func (s *budgetRequestService) CreateBudgetRequest(ctx context.Context, actor domain.Actor, amount decimal.Decimal, justification string) (*domain.BudgetRequest, error) {
	if err := validateMoney("requested amount", amount); err != nil {
		return nil, err
	}
	justification = strings.TrimSpace(justification)
	if err := validateInput(justificationInput{Justification: justification}); err != nil {
		return nil, err
	}

	// The chain head is authoritative; the cached projection may have drifted.
	snapshot := decimal.Zero
	head, err := s.ledgerRepo.FindLatestEntry(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if head != nil {
		snapshot = head.BalanceAfter
	}

	request := domain.BudgetRequest{
		RequestID:               uuid.NewString(),
		UserID:                  actor.ID,
		RequestedAmount:         amount,
		CurrentBalanceAtRequest: snapshot,
		Justification:           justification,
		Status:                  domain.RequestPending,
		AuditFields:             domain.NewAuditFields(actor.ID, s.now()),
	}
	if err := s.requestRepo.SaveBudgetRequest(ctx, request); err != nil {
		s.LogError(ctx, err, "Failed to save budget request", slog.String("user_id", actor.ID))
		return nil, err
	}

	s.LogInfo(ctx, "Budget request created",
		slog.String("request_id", request.RequestID),
		slog.String("amount", utils.FormatAmount(amount)))
	s.recordActivity(ctx, domain.EntityBudgetRequest, request.RequestID, "created", actor.ID, utils.FormatAmount(amount))
	return &request, nil
}

// ReviewBudgetRequest closes a pending request. Approval credits the requested amount in the
// same transaction as the status change, so only one of two concurrent reviews ever credits.
func (s *budgetRequestService) ReviewBudgetRequest(ctx context.Context, actor domain.Actor, requestID string, decision domain.ReviewDecision, rejectionReason string) (*domain.BudgetRequest, error) {
	rejectionReason = strings.TrimSpace(rejectionReason)
	if err := validateDecision(decision, rejectionReason); err != nil {
		return nil, err
	}
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}

	current, err := s.requestRepo.FindBudgetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.UserID == actor.ID {
		return nil, fmt.Errorf("%w: you cannot review your own budget request", apperrors.ErrForbidden)
	}

	var reviewed *domain.BudgetRequest
	err = s.withRetry(ctx, "review budget request", func(ctx context.Context) error {
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
		br, err := s.requestRepo.ReviewBudgetRequestInTx(ctx, tx, review)
		if err != nil {
			return err
		}
		if decision == domain.DecisionApprove {
			if _, err := s.balance.Credit(ctx, tx, br.UserID, br.RequestedAmount, br.RequestID, actor.ID); err != nil {
				return err
			}
		}
		if err := s.txManager.Commit(ctx, tx); err != nil {
			return err
		}
		reviewed = br
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.LogError(ctx, err, "Failed to review budget request", slog.String("request_id", requestID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Budget request reviewed",
		slog.String("request_id", requestID),
		slog.String("decision", string(decision)),
		slog.String("reviewer_id", actor.ID))
	s.recordActivity(ctx, domain.EntityBudgetRequest, requestID, "reviewed:"+string(decision), actor.ID, rejectionReason)

	kind := ports.NotifyBudgetApproved
	if decision == domain.DecisionReject {
		kind = ports.NotifyBudgetRejected
	}
	s.notify(ctx, reviewed.UserID, kind, map[string]string{
		"requestId": reviewed.RequestID,
		"amount":    utils.FormatAmount(reviewed.RequestedAmount),
		"reason":    derefString(reviewed.RejectionReason),
	})
	return reviewed, nil
}

func (s *budgetRequestService) GetBudgetRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.BudgetRequest, error) {
	br, err := s.requestRepo.FindBudgetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, br.UserID) {
		return nil, fmt.Errorf("%w: budget request belongs to another user", apperrors.ErrForbidden)
	}
	return br, nil
}

func (s *budgetRequestService) ListPendingBudgetRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.BudgetRequest, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	return s.requestRepo.ListBudgetRequests(ctx, portsrepo.RequestFilter{Status: domain.RequestPending, Limit: limit, Offset: offset})
}

func (s *budgetRequestService) ListMyBudgetRequests(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.BudgetRequest, error) {
	return s.requestRepo.ListBudgetRequests(ctx, portsrepo.RequestFilter{UserID: actor.ID, Limit: limit, Offset: offset})
}
