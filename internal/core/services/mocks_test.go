package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// fakeTx stands in for a live transaction; repositories are mocked so it is never used.
type fakeTx struct {
	pgx.Tx
}

// --- Mock TransactionManager ---
type MockTxManager struct {
	mock.Mock
}

var _ portsrepo.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTxManager) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTxManager) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

var _ portsrepo.InvoiceRepositoryFacade = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) invoiceResult(args mock.Arguments) (*domain.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, invoiceID))
}

func (m *MockInvoiceRepository) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListStaleClaims(ctx context.Context, cutoff time.Time, limit int) ([]domain.Invoice, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListStorageKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ClaimInvoice(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, invoiceID, reviewerID, now))
}

func (m *MockInvoiceRepository) TouchReviewPing(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, invoiceID, reviewerID, now))
}

func (m *MockInvoiceRepository) ReleaseClaim(ctx context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, invoiceID, reviewerID, now))
}

func (m *MockInvoiceRepository) ReclaimStaleClaim(ctx context.Context, invoiceID string, cutoff, now time.Time) (bool, error) {
	args := m.Called(ctx, invoiceID, cutoff, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, tx, invoiceID))
}

func (m *MockInvoiceRepository) UpdateInvoiceInTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice, guard portsrepo.InvoiceGuard) error {
	args := m.Called(ctx, tx, invoice, guard)
	return args.Error(0)
}

func (m *MockInvoiceRepository) DeleteInvoiceInTx(ctx context.Context, tx pgx.Tx, invoiceID string) error {
	args := m.Called(ctx, tx, invoiceID)
	return args.Error(0)
}

// --- Mock BalancePoster ---
type MockBalancePoster struct {
	mock.Mock
}

var _ portssvc.BalancePosterSvc = (*MockBalancePoster)(nil)

func (m *MockBalancePoster) entryResult(args mock.Arguments) (*domain.LedgerEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockBalancePoster) Apply(ctx context.Context, tx pgx.Tx, posting domain.LedgerPosting) (*domain.LedgerEntry, error) {
	return m.entryResult(m.Called(ctx, tx, posting))
}

func (m *MockBalancePoster) Deduct(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, invoiceID, actorID string) (*domain.LedgerEntry, error) {
	return m.entryResult(m.Called(ctx, tx, accountID, amount, invoiceID, actorID))
}

func (m *MockBalancePoster) Refund(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, txnType domain.LedgerTransactionType, referenceID, actorID string) (*domain.LedgerEntry, error) {
	return m.entryResult(m.Called(ctx, tx, accountID, amount, txnType, referenceID, actorID))
}

func (m *MockBalancePoster) Credit(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, requestID, actorID string) (*domain.LedgerEntry, error) {
	return m.entryResult(m.Called(ctx, tx, accountID, amount, requestID, actorID))
}

func (m *MockBalancePoster) OutstandingDeduction(ctx context.Context, tx pgx.Tx, accountID, invoiceID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, accountID, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- Mock BudgetRequestRepository ---
type MockBudgetRequestRepository struct {
	mock.Mock
}

var _ portsrepo.BudgetRequestRepositoryFacade = (*MockBudgetRequestRepository)(nil)

func (m *MockBudgetRequestRepository) SaveBudgetRequest(ctx context.Context, request domain.BudgetRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockBudgetRequestRepository) FindBudgetRequestByID(ctx context.Context, requestID string) (*domain.BudgetRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetRequest), args.Error(1)
}

func (m *MockBudgetRequestRepository) ListBudgetRequests(ctx context.Context, filter portsrepo.RequestFilter) ([]domain.BudgetRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BudgetRequest), args.Error(1)
}

func (m *MockBudgetRequestRepository) ReviewBudgetRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.BudgetRequest, error) {
	args := m.Called(ctx, tx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetRequest), args.Error(1)
}

// --- Mock DeletionRequestRepository ---
type MockDeletionRequestRepository struct {
	mock.Mock
}

var _ portsrepo.DeletionRequestRepositoryFacade = (*MockDeletionRequestRepository)(nil)

func (m *MockDeletionRequestRepository) SaveDeletionRequest(ctx context.Context, request domain.InvoiceDeletionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockDeletionRequestRepository) FindDeletionRequestByID(ctx context.Context, requestID string) (*domain.InvoiceDeletionRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceDeletionRequest), args.Error(1)
}

func (m *MockDeletionRequestRepository) ListDeletionRequests(ctx context.Context, filter portsrepo.RequestFilter) ([]domain.InvoiceDeletionRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceDeletionRequest), args.Error(1)
}

func (m *MockDeletionRequestRepository) ReviewDeletionRequestInTx(ctx context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.InvoiceDeletionRequest, error) {
	args := m.Called(ctx, tx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceDeletionRequest), args.Error(1)
}

// --- Mock LedgerReader ---
type MockLedgerReader struct {
	mock.Mock
}

var _ portsrepo.LedgerReader = (*MockLedgerReader)(nil)

func (m *MockLedgerReader) FindBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}

func (m *MockLedgerReader) ListEntries(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.LedgerEntry), returnedNextToken, args.Error(2)
}

func (m *MockLedgerReader) FindLatestEntry(ctx context.Context, accountID string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerReader) ListAccountIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock ObjectStore ---
type MockObjectStore struct {
	mock.Mock
}

var _ ports.ObjectStore = (*MockObjectStore)(nil)

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock Notifier ---
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, userID string, kind ports.NotificationKind, payload map[string]string) error {
	args := m.Called(ctx, userID, kind, payload)
	return args.Error(0)
}

// --- Mock MaintenanceRepository ---
type MockMaintenanceRepository struct {
	mock.Mock
}

var _ portsrepo.MaintenanceRepository = (*MockMaintenanceRepository)(nil)

func (m *MockMaintenanceRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMaintenanceRepository) DeleteActivityLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock BalanceReader ---
type MockBalanceReader struct {
	mock.Mock
}

var _ portssvc.BalanceReaderSvc = (*MockBalanceReader)(nil)

func (m *MockBalanceReader) GetBalance(ctx context.Context, actor domain.Actor, accountID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, actor, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}

func (m *MockBalanceReader) ListEntries(ctx context.Context, actor domain.Actor, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, actor, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), nil, args.Error(2)
}

func (m *MockBalanceReader) VerifyChain(ctx context.Context, accountID string) (*domain.ChainReport, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChainReport), args.Error(1)
}

func (m *MockBalanceReader) ListAccountIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
