package handlers_test

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock InvoiceService ---
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) invoiceResult(args mock.Arguments) (*domain.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID))
}
func (m *MockInvoiceService) ListInvoices(ctx context.Context, actor domain.Actor, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}
func (m *MockInvoiceService) SubmitInvoice(ctx context.Context, actor domain.Actor, input domain.NewInvoiceInput) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, input))
}
func (m *MockInvoiceService) ResubmitInvoice(ctx context.Context, actor domain.Actor, rejectedInvoiceID string, input domain.NewInvoiceInput) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, rejectedInvoiceID, input))
}
func (m *MockInvoiceService) ClaimInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID))
}
func (m *MockInvoiceService) PingReview(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID))
}
func (m *MockInvoiceService) ReleaseInvoice(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID))
}
func (m *MockInvoiceService) DecideInvoice(ctx context.Context, actor domain.Actor, invoiceID string, outcome domain.InvoiceStatus, payload domain.DecisionPayload) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID, outcome, payload))
}
func (m *MockInvoiceService) ReopenInvoice(ctx context.Context, actor domain.Actor, invoiceID string, reason string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID, reason))
}
func (m *MockInvoiceService) AdvancePayout(ctx context.Context, actor domain.Actor, invoiceID string) (*domain.Invoice, error) {
	return m.invoiceResult(m.Called(ctx, actor, invoiceID))
}

// Ensure mock implements the interface
var _ portssvc.InvoiceSvcFacade = (*MockInvoiceService)(nil)

// --- Mock BalanceService ---
type MockBalanceService struct {
	mock.Mock
}

func entryResult(args mock.Arguments) (*domain.LedgerEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func reportResult(args mock.Arguments) (*domain.ChainReport, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChainReport), args.Error(1)
}

func (m *MockBalanceService) Apply(ctx context.Context, tx pgx.Tx, posting domain.LedgerPosting) (*domain.LedgerEntry, error) {
	return entryResult(m.Called(ctx, tx, posting))
}
func (m *MockBalanceService) Deduct(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, invoiceID, actorID string) (*domain.LedgerEntry, error) {
	return entryResult(m.Called(ctx, tx, accountID, amount, invoiceID, actorID))
}
func (m *MockBalanceService) Refund(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, txnType domain.LedgerTransactionType, referenceID, actorID string) (*domain.LedgerEntry, error) {
	return entryResult(m.Called(ctx, tx, accountID, amount, txnType, referenceID, actorID))
}
func (m *MockBalanceService) Credit(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, requestID, actorID string) (*domain.LedgerEntry, error) {
	return entryResult(m.Called(ctx, tx, accountID, amount, requestID, actorID))
}
func (m *MockBalanceService) OutstandingDeduction(ctx context.Context, tx pgx.Tx, accountID, invoiceID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, accountID, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockBalanceService) GetBalance(ctx context.Context, actor domain.Actor, accountID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, actor, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}
func (m *MockBalanceService) ListEntries(ctx context.Context, actor domain.Actor, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, actor, accountID, limit, nextToken)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), next, args.Error(2)
}
func (m *MockBalanceService) VerifyChain(ctx context.Context, accountID string) (*domain.ChainReport, error) {
	return reportResult(m.Called(ctx, accountID))
}
func (m *MockBalanceService) ListAccountIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockBalanceService) AdjustBalance(ctx context.Context, actor domain.Actor, accountID string, amount decimal.Decimal, notes string) (*domain.LedgerEntry, error) {
	return entryResult(m.Called(ctx, actor, accountID, amount, notes))
}
func (m *MockBalanceService) RebuildProjection(ctx context.Context, accountID string) (*domain.ChainReport, error) {
	return reportResult(m.Called(ctx, accountID))
}

// Ensure mock implements the interface
var _ portssvc.BalanceSvcFacade = (*MockBalanceService)(nil)
