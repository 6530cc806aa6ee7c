package dto

import (
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/utils"
	"github.com/shopspring/decimal"
)

// BalanceResponse defines the data returned for an account balance query.
type BalanceResponse struct {
	AccountID   string     `json:"accountID"`
	Balance     string     `json:"balance" example:"750.00"`
	LastEntryID *string    `json:"lastEntryID,omitempty"`
	LastEntryAt *time.Time `json:"lastEntryAt,omitempty"`
}

// ToBalanceResponse converts a domain.AccountBalance to BalanceResponse DTO
func ToBalanceResponse(b *domain.AccountBalance) BalanceResponse {
	return BalanceResponse{
		AccountID:   b.AccountID,
		Balance:     utils.FormatAmount(b.Balance),
		LastEntryID: b.LastEntryID,
		LastEntryAt: b.LastEntryAt,
	}
}

// LedgerEntryResponse defines the data returned for a ledger entry.
type LedgerEntryResponse struct {
	EntryID         string                       `json:"entryID"`
	AccountID       string                       `json:"accountID"`
	Amount          string                       `json:"amount" example:"-250.00"`
	BalanceBefore   string                       `json:"balanceBefore"`
	BalanceAfter    string                       `json:"balanceAfter"`
	TransactionType domain.LedgerTransactionType `json:"transactionType"`
	ReferenceID     *string                      `json:"referenceID,omitempty"`
	Notes           string                       `json:"notes"`
	CreatedBy       string                       `json:"createdBy"`
	CreatedAt       time.Time                    `json:"createdAt"`
}

// ToLedgerEntryResponse converts a domain.LedgerEntry to LedgerEntryResponse DTO
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:         e.EntryID,
		AccountID:       e.AccountID,
		Amount:          utils.FormatAmount(e.Amount),
		BalanceBefore:   utils.FormatAmount(e.BalanceBefore),
		BalanceAfter:    utils.FormatAmount(e.BalanceAfter),
		TransactionType: e.TransactionType,
		ReferenceID:     e.ReferenceID,
		Notes:           e.Notes,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
	}
}

// ListEntriesParams defines query parameters for paging through a ledger.
type ListEntriesParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListEntriesResponse wraps a page of ledger entries, newest first.
type ListEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ToListEntriesResponse converts a page of domain.LedgerEntry to the list response.
func ToListEntriesResponse(entries []domain.LedgerEntry, nextToken *string) ListEntriesResponse {
	res := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		res[i] = ToLedgerEntryResponse(&entries[i])
	}
	return ListEntriesResponse{Entries: res, NextToken: nextToken}
}

// AdjustBalanceRequest is an administrator's signed correction to a balance.
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"-12.50"`
	Notes  string          `json:"notes" binding:"required"`
}

// ChainReportResponse defines the data returned by ledger verification and rebuilds.
type ChainReportResponse struct {
	AccountID       string             `json:"accountID"`
	EntryCount      int                `json:"entryCount"`
	ReplayedBalance string             `json:"replayedBalance"`
	CachedBalance   string             `json:"cachedBalance"`
	Consistent      bool               `json:"consistent"`
	Break           *domain.ChainBreak `json:"break,omitempty"`
}

// ToChainReportResponse converts a domain.ChainReport to ChainReportResponse DTO
func ToChainReportResponse(r *domain.ChainReport) ChainReportResponse {
	return ChainReportResponse{
		AccountID:       r.AccountID,
		EntryCount:      r.EntryCount,
		ReplayedBalance: utils.FormatAmount(r.ReplayedBalance),
		CachedBalance:   utils.FormatAmount(r.CachedBalance),
		Consistent:      r.Consistent(),
		Break:           r.Break,
	}
}
