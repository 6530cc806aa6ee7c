package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/SscSPs/invoice_review_app/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *memory.Store
	ctx   context.Context
	now   time.Time
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *StoreTestSuite) seedInvoice(status domain.InvoiceStatus) domain.Invoice {
	inv := domain.Invoice{
		InvoiceID:   uuid.NewString(),
		Status:      status,
		SubmitterID: "sub-1",
		StorageKey:  "invoices/" + uuid.NewString() + ".jpg",
		EditHistory: []domain.EditRecord{},
		AuditFields: domain.NewAuditFields("sub-1", suite.now),
	}
	suite.Require().NoError(suite.store.SaveInvoice(suite.ctx, inv))
	return inv
}

func (suite *StoreTestSuite) TestClaimInvoice_IsConditional() {
	inv := suite.seedInvoice(domain.InvoicePending)

	claimed, err := suite.store.ClaimInvoice(suite.ctx, inv.InvoiceID, "rev-1", suite.now)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceInReview, claimed.Status)
	suite.True(claimed.IsClaimedBy("rev-1"))
	suite.True(claimed.LeaseConsistent())

	_, err = suite.store.ClaimInvoice(suite.ctx, inv.InvoiceID, "rev-2", suite.now)
	suite.ErrorIs(err, apperrors.ErrConflict)

	_, err = suite.store.ClaimInvoice(suite.ctx, uuid.NewString(), "rev-2", suite.now)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *StoreTestSuite) TestClaimInvoice_ConcurrentSingleWinner() {
	inv := suite.seedInvoice(domain.InvoiceReReview)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(reviewer string) {
			defer wg.Done()
			if _, err := suite.store.ClaimInvoice(suite.ctx, inv.InvoiceID, reviewer, suite.now); err == nil {
				mu.Lock()
				winners = append(winners, reviewer)
				mu.Unlock()
			}
		}(uuid.NewString())
	}
	wg.Wait()

	suite.Len(winners, 1)
	stored, err := suite.store.FindInvoiceByID(suite.ctx, inv.InvoiceID)
	suite.Require().NoError(err)
	suite.True(stored.IsClaimedBy(winners[0]))
}

func (suite *StoreTestSuite) TestPingAndRelease() {
	inv := suite.seedInvoice(domain.InvoicePending)
	_, err := suite.store.ClaimInvoice(suite.ctx, inv.InvoiceID, "rev-1", suite.now)
	suite.Require().NoError(err)

	_, err = suite.store.TouchReviewPing(suite.ctx, inv.InvoiceID, "rev-2", suite.now)
	suite.ErrorIs(err, apperrors.ErrNotOwner)

	later := suite.now.Add(time.Minute)
	pinged, err := suite.store.TouchReviewPing(suite.ctx, inv.InvoiceID, "rev-1", later)
	suite.Require().NoError(err)
	suite.True(pinged.LastReviewPing.Equal(later))

	_, err = suite.store.ReleaseClaim(suite.ctx, inv.InvoiceID, "rev-2", later)
	suite.ErrorIs(err, apperrors.ErrConflict)

	released, err := suite.store.ReleaseClaim(suite.ctx, inv.InvoiceID, "rev-1", later)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoicePending, released.Status)
	suite.Nil(released.CurrentReviewerID)
	suite.Nil(released.LastReviewPing)
}

func (suite *StoreTestSuite) TestReclaimStaleClaim_UsesCutoffPredicate() {
	inv := suite.seedInvoice(domain.InvoicePending)
	_, err := suite.store.ClaimInvoice(suite.ctx, inv.InvoiceID, "rev-1", suite.now)
	suite.Require().NoError(err)

	ok, err := suite.store.ReclaimStaleClaim(suite.ctx, inv.InvoiceID, suite.now, suite.now)
	suite.Require().NoError(err)
	suite.False(ok, "a ping exactly at the cutoff is not stale")

	stale, err := suite.store.ListStaleClaims(suite.ctx, suite.now.Add(time.Nanosecond), 10)
	suite.Require().NoError(err)
	suite.Len(stale, 1)

	ok, err = suite.store.ReclaimStaleClaim(suite.ctx, inv.InvoiceID, suite.now.Add(time.Nanosecond), suite.now)
	suite.Require().NoError(err)
	suite.True(ok)

	ok, err = suite.store.ReclaimStaleClaim(suite.ctx, inv.InvoiceID, suite.now.Add(time.Hour), suite.now)
	suite.Require().NoError(err)
	suite.False(ok, "already reclaimed")
}

func (suite *StoreTestSuite) TestTransaction_RollbackDiscardsAndCommitPublishes() {
	tx, err := suite.store.Begin(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.store.LockAccountInTx(suite.ctx, tx, "acct-1", suite.now)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.store.Rollback(suite.ctx, tx))

	_, err = suite.store.FindBalance(suite.ctx, "acct-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	tx, err = suite.store.Begin(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.store.LockAccountInTx(suite.ctx, tx, "acct-1", suite.now)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.store.Commit(suite.ctx, tx))
	suite.NoError(suite.store.Rollback(suite.ctx, tx), "rollback after commit is a no-op")

	balance, err := suite.store.FindBalance(suite.ctx, "acct-1")
	suite.Require().NoError(err)
	suite.True(balance.Balance.IsZero())
}

func (suite *StoreTestSuite) TestUpdateInvoiceInTx_GuardMismatchConflicts() {
	inv := suite.seedInvoice(domain.InvoicePending)
	reviewer := "rev-1"

	tx, err := suite.store.Begin(suite.ctx)
	suite.Require().NoError(err)
	defer suite.store.Rollback(suite.ctx, tx)

	inv.Status = domain.InvoiceAccepted
	err = suite.store.UpdateInvoiceInTx(suite.ctx, tx, inv, portsrepo.InvoiceGuard{Status: domain.InvoiceInReview, ReviewerID: &reviewer})
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *StoreTestSuite) appendEntry(accountID string, amount int64, at time.Time) domain.LedgerEntry {
	tx, err := suite.store.Begin(suite.ctx)
	suite.Require().NoError(err)
	defer suite.store.Rollback(suite.ctx, tx)

	bal, err := suite.store.LockAccountInTx(suite.ctx, tx, accountID, at)
	suite.Require().NoError(err)
	entry := domain.LedgerEntry{
		EntryID:         uuid.NewString(),
		AccountID:       accountID,
		Amount:          decimal.NewFromInt(amount),
		BalanceBefore:   bal.Balance,
		BalanceAfter:    bal.Balance.Add(decimal.NewFromInt(amount)),
		TransactionType: domain.TxnAdjustment,
		CreatedBy:       "admin-1",
		CreatedAt:       at,
	}
	suite.Require().NoError(suite.store.InsertEntryInTx(suite.ctx, tx, &entry))
	entryID, entryAt := entry.EntryID, entry.CreatedAt
	suite.Require().NoError(suite.store.UpdateProjectionInTx(suite.ctx, tx, domain.AccountBalance{
		AccountID: accountID, Balance: entry.BalanceAfter, LastEntryID: &entryID, LastEntryAt: &entryAt, LastUpdatedAt: at,
	}))
	suite.Require().NoError(suite.store.Commit(suite.ctx, tx))
	return entry
}

func (suite *StoreTestSuite) TestListEntries_CursorPagination() {
	for i := 0; i < 5; i++ {
		// identical timestamps force the seq tie-breaker
		suite.appendEntry("acct-1", int64(10*(i+1)), suite.now)
	}

	first, token, err := suite.store.ListEntries(suite.ctx, "acct-1", 2, nil)
	suite.Require().NoError(err)
	suite.Require().Len(first, 2)
	suite.Require().NotNil(token)
	suite.True(first[0].Seq > first[1].Seq, "newest first")

	second, token, err := suite.store.ListEntries(suite.ctx, "acct-1", 2, token)
	suite.Require().NoError(err)
	suite.Require().Len(second, 2)
	suite.Require().NotNil(token)
	suite.True(second[0].Seq < first[1].Seq)

	third, token, err := suite.store.ListEntries(suite.ctx, "acct-1", 2, token)
	suite.Require().NoError(err)
	suite.Len(third, 1)
	suite.Nil(token)

	bad := "not-base64!"
	_, _, err = suite.store.ListEntries(suite.ctx, "acct-1", 2, &bad)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *StoreTestSuite) TestSaveInvoice_OneSuccessorPerRejectedInvoice() {
	rejected := suite.seedInvoice(domain.InvoiceRejected)
	successor := func() domain.Invoice {
		return domain.Invoice{
			InvoiceID:       uuid.NewString(),
			Status:          domain.InvoicePending,
			SubmitterID:     "sub-1",
			StorageKey:      "invoices/" + uuid.NewString() + ".jpg",
			ResubmittedFrom: &rejected.InvoiceID,
			EditHistory:     []domain.EditRecord{},
			AuditFields:     domain.NewAuditFields("sub-1", suite.now),
		}
	}

	suite.Require().NoError(suite.store.SaveInvoice(suite.ctx, successor()))
	err := suite.store.SaveInvoice(suite.ctx, successor())
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.NoError(suite.store.SaveInvoice(suite.ctx, suite.seedlessInvoice()), "invoices without a predecessor are unaffected")
}

func (suite *StoreTestSuite) seedlessInvoice() domain.Invoice {
	return domain.Invoice{
		InvoiceID:   uuid.NewString(),
		Status:      domain.InvoicePending,
		SubmitterID: "sub-1",
		StorageKey:  "invoices/" + uuid.NewString() + ".jpg",
		EditHistory: []domain.EditRecord{},
		AuditFields: domain.NewAuditFields("sub-1", suite.now),
	}
}

func (suite *StoreTestSuite) TestSaveDeletionRequest_OnePendingPerInvoice() {
	newRequest := func() domain.InvoiceDeletionRequest {
		return domain.InvoiceDeletionRequest{
			RequestID:   uuid.NewString(),
			InvoiceID:   "inv-1",
			RequestedBy: "sub-1",
			Reason:      "uploaded the wrong document",
			Status:      domain.RequestPending,
			AuditFields: domain.NewAuditFields("sub-1", suite.now),
		}
	}
	first := newRequest()
	suite.Require().NoError(suite.store.SaveDeletionRequest(suite.ctx, first))
	suite.ErrorIs(suite.store.SaveDeletionRequest(suite.ctx, newRequest()), apperrors.ErrConflict)

	tx, err := suite.store.Begin(suite.ctx)
	suite.Require().NoError(err)
	reason := "not a duplicate upload"
	_, err = suite.store.ReviewDeletionRequestInTx(suite.ctx, tx, domain.RequestReview{
		RequestID: first.RequestID, ReviewerID: "admin-1", Decision: domain.DecisionReject, RejectionReason: &reason, ReviewedAt: suite.now,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.store.Commit(suite.ctx, tx))

	suite.NoError(suite.store.SaveDeletionRequest(suite.ctx, newRequest()), "a closed request frees the slot")
}

func (suite *StoreTestSuite) TestPruning() {
	suite.store.AddSession("s-old", suite.now.Add(-time.Hour))
	suite.store.AddSession("s-new", suite.now.Add(time.Hour))
	suite.Require().NoError(suite.store.SaveActivityLog(suite.ctx, domain.ActivityLog{LogID: "l1", CreatedAt: suite.now.Add(-48 * time.Hour)}))
	suite.Require().NoError(suite.store.SaveActivityLog(suite.ctx, domain.ActivityLog{LogID: "l2", CreatedAt: suite.now}))

	n, err := suite.store.DeleteExpiredSessions(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.EqualValues(1, n)

	n, err = suite.store.DeleteActivityLogsBefore(suite.ctx, suite.now.Add(-24*time.Hour))
	suite.Require().NoError(err)
	suite.EqualValues(1, n)
	suite.Len(suite.store.ActivityLogs(), 1)
}
