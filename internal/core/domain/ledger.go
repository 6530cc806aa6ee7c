package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTransactionType classifies a ledger entry.
type LedgerTransactionType string

const (
	TxnAdjustment          LedgerTransactionType = "adjustment"
	TxnInvoiceDeduction    LedgerTransactionType = "invoice_deduction"
	TxnInvoiceRefund       LedgerTransactionType = "invoice_refund"
	TxnInvoiceDeleteRefund LedgerTransactionType = "invoice_delete_refund"
	TxnAdvanceCredit       LedgerTransactionType = "advance_credit"
)

// IsValid reports whether t is a known transaction type.
func (t LedgerTransactionType) IsValid() bool {
	switch t {
	case TxnAdjustment, TxnInvoiceDeduction, TxnInvoiceRefund, TxnInvoiceDeleteRefund, TxnAdvanceCredit:
		return true
	}
	return false
}

// AmountScale is the fixed number of decimal places used for all money values.
const AmountScale int32 = 2

// LedgerEntry is an immutable balance movement for one account.
type LedgerEntry struct {
	EntryID         string                `json:"entryID"`
	Seq             int64                 `json:"seq"`
	AccountID       string                `json:"accountID"`
	Amount          decimal.Decimal       `json:"amount"`
	BalanceBefore   decimal.Decimal       `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal       `json:"balanceAfter"`
	TransactionType LedgerTransactionType `json:"transactionType"`
	ReferenceID     *string               `json:"referenceID,omitempty"`
	Notes           string                `json:"notes"`
	CreatedBy       string                `json:"createdBy"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// AccountBalance is the cached balance projection for an account.
type AccountBalance struct {
	AccountID     string          `json:"accountID"`
	Balance       decimal.Decimal `json:"balance"`
	LastEntryID   *string         `json:"lastEntryID,omitempty"`
	LastEntryAt   *time.Time      `json:"lastEntryAt,omitempty"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// HasExactScale reports whether amount is representable at AmountScale without rounding.
func HasExactScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountScale))
}

// ChainBreak describes the first entry whose chaining does not hold.
type ChainBreak struct {
	EntryID  string          `json:"entryID"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Field    string          `json:"field"`
}

// ChainReport is the outcome of replaying an account's ledger.
type ChainReport struct {
	AccountID       string          `json:"accountID"`
	EntryCount      int             `json:"entryCount"`
	ReplayedBalance decimal.Decimal `json:"replayedBalance"`
	CachedBalance   decimal.Decimal `json:"cachedBalance"`
	Break           *ChainBreak     `json:"break,omitempty"`
}

// Consistent reports whether the chain is unbroken and the cache agrees with the replay.
func (r ChainReport) Consistent() bool {
	return r.Break == nil && r.ReplayedBalance.Equal(r.CachedBalance)
}

// ReplayLedger walks entries (ordered by createdAt, seq) and checks the chaining invariant.
// The returned report has CachedBalance unset; callers fill it from the projection.
func ReplayLedger(accountID string, entries []LedgerEntry) ChainReport {
	report := ChainReport{AccountID: accountID, EntryCount: len(entries)}
	running := decimal.Zero
	for _, e := range entries {
		if !e.BalanceBefore.Equal(running) {
			report.Break = &ChainBreak{EntryID: e.EntryID, Expected: running, Actual: e.BalanceBefore, Field: "balanceBefore"}
			break
		}
		after := e.BalanceBefore.Add(e.Amount)
		if !e.BalanceAfter.Equal(after) {
			report.Break = &ChainBreak{EntryID: e.EntryID, Expected: after, Actual: e.BalanceAfter, Field: "balanceAfter"}
			break
		}
		running = e.BalanceAfter
	}
	report.ReplayedBalance = running
	return report
}

// LedgerPosting is a request to append one entry to an account's ledger.
type LedgerPosting struct {
	AccountID   string
	Amount      decimal.Decimal
	Type        LedgerTransactionType
	ReferenceID *string
	Notes       string
	ActorID     string
}
