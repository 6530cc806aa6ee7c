package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RequestServicesTestSuite struct {
	suite.Suite
	txManager    *MockTxManager
	budgetRepo   *MockBudgetRequestRepository
	deletionRepo *MockDeletionRequestRepository
	invoiceRepo  *MockInvoiceRepository
	ledgerRepo   *MockLedgerReader
	balance      *MockBalancePoster
	objects      *MockObjectStore
	notifier     *MockNotifier
	budget       portssvc.BudgetRequestSvcFacade
	deletion     portssvc.DeletionRequestSvcFacade
	ctx          context.Context
	now          time.Time
	tx           *fakeTx

	submitter domain.Actor
	reviewer  domain.Actor
	admin     domain.Actor
}

func TestRequestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(RequestServicesTestSuite))
}

func (suite *RequestServicesTestSuite) SetupTest() {
	suite.txManager = new(MockTxManager)
	suite.budgetRepo = new(MockBudgetRequestRepository)
	suite.deletionRepo = new(MockDeletionRequestRepository)
	suite.invoiceRepo = new(MockInvoiceRepository)
	suite.ledgerRepo = new(MockLedgerReader)
	suite.balance = new(MockBalancePoster)
	suite.objects = new(MockObjectStore)
	suite.notifier = new(MockNotifier)
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.tx = &fakeTx{}

	suite.submitter = domain.Actor{ID: "sub-1", Role: domain.RoleSubmitter}
	suite.reviewer = domain.Actor{ID: "rev-1", Role: domain.RoleReviewer}
	suite.admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	options := []services.ServiceOption{
		services.WithClock(func() time.Time { return suite.now }),
		services.WithNotifier(suite.notifier),
	}
	suite.budget = services.NewBudgetRequestService(suite.txManager, suite.budgetRepo, suite.ledgerRepo, suite.balance, options...)
	suite.deletion = services.NewDeletionRequestService(suite.txManager, suite.deletionRepo, suite.invoiceRepo, suite.balance, suite.objects, options...)
}

func (suite *RequestServicesTestSuite) TearDownTest() {
	suite.budgetRepo.AssertExpectations(suite.T())
	suite.deletionRepo.AssertExpectations(suite.T())
	suite.invoiceRepo.AssertExpectations(suite.T())
	suite.balance.AssertExpectations(suite.T())
	suite.objects.AssertExpectations(suite.T())
	suite.txManager.AssertExpectations(suite.T())
}

func (suite *RequestServicesTestSuite) expectTx(commit bool) {
	suite.txManager.On("Begin", mock.Anything).Return(suite.tx, nil).Once()
	suite.txManager.On("Rollback", mock.Anything, suite.tx).Return(nil)
	if commit {
		suite.txManager.On("Commit", mock.Anything, suite.tx).Return(nil).Once()
	}
}

func (suite *RequestServicesTestSuite) pendingBudget(amount string) *domain.BudgetRequest {
	return &domain.BudgetRequest{
		RequestID:       "br-1",
		UserID:          suite.submitter.ID,
		RequestedAmount: decimal.RequireFromString(amount),
		Justification:   "conference travel",
		Status:          domain.RequestPending,
		AuditFields:     domain.NewAuditFields(suite.submitter.ID, suite.now),
	}
}

// --- Budget requests ---

func (suite *RequestServicesTestSuite) TestCreateBudgetRequest_SnapshotsBalance() {
	suite.ledgerRepo.On("FindLatestEntry", mock.Anything, suite.submitter.ID).
		Return(&domain.LedgerEntry{AccountID: suite.submitter.ID, BalanceAfter: decimal.RequireFromString("100.00")}, nil).Once()
	suite.budgetRepo.On("SaveBudgetRequest", mock.Anything, mock.MatchedBy(func(br domain.BudgetRequest) bool {
		return br.Status == domain.RequestPending &&
			br.UserID == suite.submitter.ID &&
			br.CurrentBalanceAtRequest.Equal(decimal.RequireFromString("100")) &&
			br.Justification == "conference travel"
	})).Return(nil).Once()

	br, err := suite.budget.CreateBudgetRequest(suite.ctx, suite.submitter, decimal.RequireFromString("500.00"), "  conference travel ")

	suite.Require().NoError(err)
	suite.Equal(domain.RequestPending, br.Status)
}

func (suite *RequestServicesTestSuite) TestCreateBudgetRequest_NewAccountSnapshotsZero() {
	suite.ledgerRepo.On("FindLatestEntry", mock.Anything, suite.submitter.ID).Return(nil, nil).Once()
	suite.budgetRepo.On("SaveBudgetRequest", mock.Anything, mock.MatchedBy(func(br domain.BudgetRequest) bool {
		return br.CurrentBalanceAtRequest.IsZero()
	})).Return(nil).Once()

	_, err := suite.budget.CreateBudgetRequest(suite.ctx, suite.submitter, decimal.RequireFromString("50"), "team lunch")

	suite.Require().NoError(err)
}

func (suite *RequestServicesTestSuite) TestCreateBudgetRequest_Validation() {
	_, err := suite.budget.CreateBudgetRequest(suite.ctx, suite.submitter, decimal.RequireFromString("50"), "hi")
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "justification must be at least 5 characters")

	_, err = suite.budget.CreateBudgetRequest(suite.ctx, suite.submitter, decimal.Zero, "team lunch")
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)

	_, err = suite.budget.CreateBudgetRequest(suite.ctx, suite.submitter, decimal.RequireFromString("1.234"), "team lunch")
	suite.ErrorIs(err, apperrors.ErrInsufficientPrecision)
}

func (suite *RequestServicesTestSuite) TestReviewBudgetRequest_ApproveCredits() {
	current := suite.pendingBudget("500.00")
	approved := *current
	approved.Status = domain.RequestApproved
	suite.budgetRepo.On("FindBudgetRequestByID", mock.Anything, "br-1").Return(current, nil).Once()
	suite.expectTx(true)
	suite.budgetRepo.On("ReviewBudgetRequestInTx", mock.Anything, suite.tx, mock.MatchedBy(func(r domain.RequestReview) bool {
		return r.Decision == domain.DecisionApprove && r.ReviewerID == suite.reviewer.ID && r.RejectionReason == nil
	})).Return(&approved, nil).Once()
	suite.balance.On("Credit", mock.Anything, suite.tx, suite.submitter.ID, approved.RequestedAmount, "br-1", suite.reviewer.ID).
		Return(&domain.LedgerEntry{EntryID: "e-1"}, nil).Once()
	suite.notifier.On("Notify", mock.Anything, suite.submitter.ID, ports.NotifyBudgetApproved, mock.Anything).Return(nil).Once()

	br, err := suite.budget.ReviewBudgetRequest(suite.ctx, suite.reviewer, "br-1", domain.DecisionApprove, "")

	suite.Require().NoError(err)
	suite.Equal(domain.RequestApproved, br.Status)
}

func (suite *RequestServicesTestSuite) TestReviewBudgetRequest_AlreadyReviewed() {
	suite.budgetRepo.On("FindBudgetRequestByID", mock.Anything, "br-1").Return(suite.pendingBudget("500.00"), nil).Once()
	suite.expectTx(false)
	suite.budgetRepo.On("ReviewBudgetRequestInTx", mock.Anything, suite.tx, mock.Anything).
		Return(nil, apperrors.ErrConflict).Once()

	_, err := suite.budget.ReviewBudgetRequest(suite.ctx, suite.reviewer, "br-1", domain.DecisionApprove, "")

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.balance.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RequestServicesTestSuite) TestReviewBudgetRequest_Guards() {
	// reason is checked before anything is read
	_, err := suite.budget.ReviewBudgetRequest(suite.ctx, suite.reviewer, "br-1", domain.DecisionReject, "no")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.budget.ReviewBudgetRequest(suite.ctx, suite.submitter, "br-1", domain.DecisionApprove, "")
	suite.ErrorIs(err, apperrors.ErrForbidden)

	own := suite.pendingBudget("500.00")
	own.UserID = suite.reviewer.ID
	suite.budgetRepo.On("FindBudgetRequestByID", mock.Anything, "br-1").Return(own, nil).Once()
	_, err = suite.budget.ReviewBudgetRequest(suite.ctx, suite.reviewer, "br-1", domain.DecisionApprove, "")
	suite.ErrorIs(err, apperrors.ErrForbidden)

	suite.txManager.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *RequestServicesTestSuite) TestListPendingBudgetRequests_ReviewerOnly() {
	_, err := suite.budget.ListPendingBudgetRequests(suite.ctx, suite.submitter, 10, 0)
	suite.ErrorIs(err, apperrors.ErrForbidden)

	suite.budgetRepo.On("ListBudgetRequests", mock.Anything, portsrepo.RequestFilter{Status: domain.RequestPending, Limit: 10}).
		Return([]domain.BudgetRequest{*suite.pendingBudget("5")}, nil).Once()
	pending, err := suite.budget.ListPendingBudgetRequests(suite.ctx, suite.reviewer, 10, 0)
	suite.Require().NoError(err)
	suite.Len(pending, 1)
}

// --- Deletion requests ---

func (suite *RequestServicesTestSuite) invoice(status domain.InvoiceStatus) *domain.Invoice {
	return &domain.Invoice{
		InvoiceID:   "inv-1",
		Status:      status,
		SubmitterID: suite.submitter.ID,
		StorageKey:  "invoices/inv-1.jpg",
		EditHistory: []domain.EditRecord{},
		AuditFields: domain.NewAuditFields(suite.submitter.ID, suite.now),
	}
}

func (suite *RequestServicesTestSuite) pendingDeletion() *domain.InvoiceDeletionRequest {
	return &domain.InvoiceDeletionRequest{
		RequestID:   "dr-1",
		InvoiceID:   "inv-1",
		RequestedBy: suite.submitter.ID,
		Reason:      "uploaded the wrong document",
		Status:      domain.RequestApproved,
		AuditFields: domain.NewAuditFields(suite.submitter.ID, suite.now),
	}
}

func (suite *RequestServicesTestSuite) TestCreateDeletionRequest() {
	suite.invoiceRepo.On("FindInvoiceByID", mock.Anything, "inv-1").Return(suite.invoice(domain.InvoiceAccepted), nil)
	suite.deletionRepo.On("SaveDeletionRequest", mock.Anything, mock.MatchedBy(func(dr domain.InvoiceDeletionRequest) bool {
		return dr.InvoiceID == "inv-1" && dr.Status == domain.RequestPending
	})).Return(nil).Once()

	dr, err := suite.deletion.CreateDeletionRequest(suite.ctx, suite.submitter, "inv-1", "uploaded the wrong document")
	suite.Require().NoError(err)
	suite.Equal(domain.RequestPending, dr.Status)

	_, err = suite.deletion.CreateDeletionRequest(suite.ctx, domain.Actor{ID: "sub-2", Role: domain.RoleSubmitter}, "inv-1", "uploaded the wrong document")
	suite.ErrorIs(err, apperrors.ErrForbidden)

	_, err = suite.deletion.CreateDeletionRequest(suite.ctx, suite.submitter, "inv-1", "oops")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RequestServicesTestSuite) TestCreateDeletionRequest_DuplicatePendingConflicts() {
	suite.invoiceRepo.On("FindInvoiceByID", mock.Anything, "inv-1").Return(suite.invoice(domain.InvoicePending), nil).Once()
	suite.deletionRepo.On("SaveDeletionRequest", mock.Anything, mock.Anything).Return(apperrors.ErrConflict).Once()

	_, err := suite.deletion.CreateDeletionRequest(suite.ctx, suite.submitter, "inv-1", "uploaded the wrong document")

	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_ApproveDeletesRefundsAndRemovesObject() {
	refund := decimal.RequireFromString("200.00")
	suite.expectTx(true)
	suite.deletionRepo.On("ReviewDeletionRequestInTx", mock.Anything, suite.tx, mock.Anything).Return(suite.pendingDeletion(), nil).Once()
	suite.invoiceRepo.On("FindInvoiceByIDForUpdate", mock.Anything, suite.tx, "inv-1").Return(suite.invoice(domain.InvoiceAccepted), nil).Once()
	suite.invoiceRepo.On("DeleteInvoiceInTx", mock.Anything, suite.tx, "inv-1").Return(nil).Once()
	suite.balance.On("OutstandingDeduction", mock.Anything, suite.tx, suite.submitter.ID, "inv-1").Return(refund, nil).Once()
	suite.balance.On("Refund", mock.Anything, suite.tx, suite.submitter.ID, refund, domain.TxnInvoiceDeleteRefund, "inv-1", suite.admin.ID).
		Return(&domain.LedgerEntry{EntryID: "e-1"}, nil).Once()
	suite.objects.On("Delete", mock.Anything, "invoices/inv-1.jpg").Return(nil).Once()
	suite.notifier.On("Notify", mock.Anything, suite.submitter.ID, ports.NotifyDeletionApproved,
		mock.MatchedBy(func(p map[string]string) bool { return p["refunded"] == "200.00" }),
	).Return(nil).Once()

	_, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.admin, "dr-1", domain.DecisionApprove, "")

	suite.Require().NoError(err)
	suite.notifier.AssertExpectations(suite.T())
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_MissingObjectCountsAsDeleted() {
	suite.expectTx(true)
	suite.deletionRepo.On("ReviewDeletionRequestInTx", mock.Anything, suite.tx, mock.Anything).Return(suite.pendingDeletion(), nil).Once()
	suite.invoiceRepo.On("FindInvoiceByIDForUpdate", mock.Anything, suite.tx, "inv-1").Return(suite.invoice(domain.InvoiceRejected), nil).Once()
	suite.invoiceRepo.On("DeleteInvoiceInTx", mock.Anything, suite.tx, "inv-1").Return(nil).Once()
	suite.balance.On("OutstandingDeduction", mock.Anything, suite.tx, suite.submitter.ID, "inv-1").Return(decimal.Zero, nil).Once()
	suite.objects.On("Delete", mock.Anything, "invoices/inv-1.jpg").Return(ports.ErrObjectNotFound).Once()
	suite.notifier.On("Notify", mock.Anything, suite.submitter.ID, ports.NotifyDeletionApproved, mock.Anything).Return(nil).Once()

	_, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.admin, "dr-1", domain.DecisionApprove, "")

	suite.Require().NoError(err)
	suite.balance.AssertNotCalled(suite.T(), "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_StorageFailureRollsBack() {
	suite.expectTx(false)
	suite.deletionRepo.On("ReviewDeletionRequestInTx", mock.Anything, suite.tx, mock.Anything).Return(suite.pendingDeletion(), nil).Once()
	suite.invoiceRepo.On("FindInvoiceByIDForUpdate", mock.Anything, suite.tx, "inv-1").Return(suite.invoice(domain.InvoicePending), nil).Once()
	suite.invoiceRepo.On("DeleteInvoiceInTx", mock.Anything, suite.tx, "inv-1").Return(nil).Once()
	suite.balance.On("OutstandingDeduction", mock.Anything, suite.tx, suite.submitter.ID, "inv-1").Return(decimal.Zero, nil).Once()
	suite.objects.On("Delete", mock.Anything, "invoices/inv-1.jpg").Return(errors.New("access denied")).Once()

	_, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.admin, "dr-1", domain.DecisionApprove, "")

	suite.ErrorIs(err, apperrors.ErrDependency)
	suite.txManager.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
	suite.notifier.AssertNotCalled(suite.T(), "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_InReviewConflicts() {
	suite.expectTx(false)
	suite.deletionRepo.On("ReviewDeletionRequestInTx", mock.Anything, suite.tx, mock.Anything).Return(suite.pendingDeletion(), nil).Once()
	suite.invoiceRepo.On("FindInvoiceByIDForUpdate", mock.Anything, suite.tx, "inv-1").Return(suite.invoice(domain.InvoiceInReview), nil).Once()

	_, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.admin, "dr-1", domain.DecisionApprove, "")

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.invoiceRepo.AssertNotCalled(suite.T(), "DeleteInvoiceInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_RejectLeavesInvoice() {
	rejected := suite.pendingDeletion()
	rejected.Status = domain.RequestRejected
	reason := "this invoice is still needed for the audit"
	rejected.RejectionReason = &reason
	suite.expectTx(true)
	suite.deletionRepo.On("ReviewDeletionRequestInTx", mock.Anything, suite.tx, mock.MatchedBy(func(r domain.RequestReview) bool {
		return r.Decision == domain.DecisionReject && r.RejectionReason != nil && *r.RejectionReason == reason
	})).Return(rejected, nil).Once()
	suite.notifier.On("Notify", mock.Anything, suite.submitter.ID, ports.NotifyDeletionRejected, mock.Anything).Return(nil).Once()

	dr, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.admin, "dr-1", domain.DecisionReject, reason)

	suite.Require().NoError(err)
	suite.Equal(domain.RequestRejected, dr.Status)
	suite.invoiceRepo.AssertNotCalled(suite.T(), "FindInvoiceByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RequestServicesTestSuite) TestReviewDeletionRequest_AdminOnly() {
	_, err := suite.deletion.ReviewDeletionRequest(suite.ctx, suite.reviewer, "dr-1", domain.DecisionApprove, "")
	suite.ErrorIs(err, apperrors.ErrForbidden)
}
