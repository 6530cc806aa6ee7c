package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the review lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoicePending          InvoiceStatus = "pending"
	InvoiceInReview         InvoiceStatus = "in_review"
	InvoiceAccepted         InvoiceStatus = "accepted"
	InvoiceRejected         InvoiceStatus = "rejected"
	InvoiceReReview         InvoiceStatus = "re_review"
	InvoiceMoneyTransferred InvoiceStatus = "money_transferred"
	InvoiceTransferred      InvoiceStatus = "transferred"
	InvoiceSettled          InvoiceStatus = "settled"
)

// IsValid reports whether s is a known invoice status.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoicePending, InvoiceInReview, InvoiceAccepted, InvoiceRejected, InvoiceReReview,
		InvoiceMoneyTransferred, InvoiceTransferred, InvoiceSettled:
		return true
	}
	return false
}

// IsClaimable reports whether an invoice in this status may be claimed for review.
func (s InvoiceStatus) IsClaimable() bool {
	return s == InvoicePending || s == InvoiceReReview
}

// IsDecisionOutcome reports whether s may be the result of a review decision.
func (s InvoiceStatus) IsDecisionOutcome() bool {
	return s == InvoiceAccepted || s == InvoiceRejected || s == InvoiceReReview
}

// IsReopenable reports whether an administrator may send the invoice back to re_review.
func (s InvoiceStatus) IsReopenable() bool {
	return s == InvoiceAccepted || s == InvoiceRejected
}

// NextPayoutStatus returns the payout step that follows s. Payout only moves forward one step.
func NextPayoutStatus(s InvoiceStatus) (InvoiceStatus, bool) {
	switch s {
	case InvoiceAccepted:
		return InvoiceMoneyTransferred, true
	case InvoiceMoneyTransferred:
		return InvoiceTransferred, true
	case InvoiceTransferred:
		return InvoiceSettled, true
	}
	return "", false
}

// ReviewPingInterval is how often a reviewer's client refreshes the claim lease.
const ReviewPingInterval = 30 * time.Second

// EditRecord is one entry of an invoice's append-only edit history.
type EditRecord struct {
	EditorID string    `json:"editorId"`
	EditedAt time.Time `json:"editedAt"`
	Field    string    `json:"field,omitempty"`
}

// Invoice is a submitted invoice together with its review lease.
type Invoice struct {
	InvoiceID       string           `json:"invoiceID"`
	InvoiceNumber   *string          `json:"invoiceNumber,omitempty"`
	Status          InvoiceStatus    `json:"status"`
	SubmitterID     string           `json:"submitterID"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	StorageKey      string           `json:"storageKey"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
	ResubmittedFrom *string          `json:"resubmittedFrom,omitempty"`
	EditHistory     []EditRecord     `json:"editHistory"`

	// Claim lease. All three are set together on claim and cleared together on release/decide.
	CurrentReviewerID *string    `json:"currentReviewerID,omitempty"`
	ReviewClaimedAt   *time.Time `json:"reviewClaimedAt,omitempty"`
	LastReviewPing    *time.Time `json:"lastReviewPing,omitempty"`

	AuditFields
}

// IsClaimedBy reports whether reviewerID currently holds the review lease.
func (i *Invoice) IsClaimedBy(reviewerID string) bool {
	return i.Status == InvoiceInReview && i.CurrentReviewerID != nil && *i.CurrentReviewerID == reviewerID
}

// LeaseConsistent reports whether the reviewer field agrees with the status.
func (i *Invoice) LeaseConsistent() bool {
	return (i.CurrentReviewerID != nil) == (i.Status == InvoiceInReview)
}

// IsStale reports whether the lease has gone without a ping since before cutoff.
func (i *Invoice) IsStale(cutoff time.Time) bool {
	return i.Status == InvoiceInReview && i.LastReviewPing != nil && i.LastReviewPing.Before(cutoff)
}

// ClearLease resets the review lease fields.
func (i *Invoice) ClearLease() {
	i.CurrentReviewerID = nil
	i.ReviewClaimedAt = nil
	i.LastReviewPing = nil
}

// DecisionPayload carries the reviewer's input for a decision.
type DecisionPayload struct {
	// Amount, when set, replaces the invoice amount before the decision is applied.
	Amount          *decimal.Decimal
	RejectionReason string
}

// InvoiceFilter selects invoices for listing. Empty fields do not filter.
type InvoiceFilter struct {
	SubmitterID string
	ReviewerID  string
	Status      InvoiceStatus
	Limit       int
	Offset      int
}

// NewInvoiceInput is what a submitter provides when uploading an invoice.
type NewInvoiceInput struct {
	InvoiceNumber *string
	Amount        *decimal.Decimal
	StorageKey    string
}
