package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetRequest is a submitter's request for an advance credit to their balance.
type BudgetRequest struct {
	RequestID               string          `json:"requestID"`
	UserID                  string          `json:"userID"`
	RequestedAmount         decimal.Decimal `json:"requestedAmount"`
	CurrentBalanceAtRequest decimal.Decimal `json:"currentBalanceAtRequest"`
	Justification           string          `json:"justification"`
	Status                  RequestStatus   `json:"status"`
	ReviewerID              *string         `json:"reviewerID,omitempty"`
	ReviewedAt              *time.Time      `json:"reviewedAt,omitempty"`
	RejectionReason         *string         `json:"rejectionReason,omitempty"`
	AuditFields
}

// RequestReview is the outcome written by the single conditional transition of a pending request.
type RequestReview struct {
	RequestID       string
	ReviewerID      string
	Decision        ReviewDecision
	RejectionReason *string
	ReviewedAt      time.Time
}

// Status returns the terminal status this review moves the request to.
func (r RequestReview) Status() RequestStatus {
	if r.Decision == DecisionApprove {
		return RequestApproved
	}
	return RequestRejected
}
