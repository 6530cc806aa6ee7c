package dto

import (
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/utils"
	"github.com/shopspring/decimal"
)

// SubmitInvoiceRequest describes an uploaded invoice. The image is already in object storage.
type SubmitInvoiceRequest struct {
	StorageKey    string           `json:"storageKey" binding:"required"`
	InvoiceNumber *string          `json:"invoiceNumber"`
	Amount        *decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
}

// ToInput converts the request into the service input.
func (r SubmitInvoiceRequest) ToInput() domain.NewInvoiceInput {
	return domain.NewInvoiceInput{
		InvoiceNumber: r.InvoiceNumber,
		Amount:        r.Amount,
		StorageKey:    r.StorageKey,
	}
}

// DecideInvoiceRequest is the reviewer's verdict. Amount optionally corrects the invoice amount first.
type DecideInvoiceRequest struct {
	Outcome         domain.InvoiceStatus `json:"outcome" binding:"required,oneof=accepted rejected re_review"`
	Amount          *decimal.Decimal     `json:"amount" swaggertype:"string" example:"250.00"`
	RejectionReason string               `json:"rejectionReason"`
}

// ToPayload converts the request into the service payload.
func (r DecideInvoiceRequest) ToPayload() domain.DecisionPayload {
	return domain.DecisionPayload{Amount: r.Amount, RejectionReason: r.RejectionReason}
}

// ReopenInvoiceRequest sends a decided invoice back for review.
type ReopenInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListInvoicesParams defines query parameters for listing invoices.
type ListInvoicesParams struct {
	Status      domain.InvoiceStatus `form:"status"`
	SubmitterID string               `form:"submitterId"`
	ReviewerID  string               `form:"reviewerId"`
	Limit       int                  `form:"limit,default=20" binding:"min=1,max=100"`
	Offset      int                  `form:"offset,default=0" binding:"min=0"`
}

// ToFilter converts the query parameters into a repository filter.
func (p ListInvoicesParams) ToFilter() domain.InvoiceFilter {
	return domain.InvoiceFilter{
		SubmitterID: p.SubmitterID,
		ReviewerID:  p.ReviewerID,
		Status:      p.Status,
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
}

// InvoiceResponse defines the data returned for an invoice.
type InvoiceResponse struct {
	InvoiceID         string               `json:"invoiceID"`
	InvoiceNumber     *string              `json:"invoiceNumber,omitempty"`
	Status            domain.InvoiceStatus `json:"status"`
	SubmitterID       string               `json:"submitterID"`
	Amount            string               `json:"amount,omitempty" example:"250.00"`
	StorageKey        string               `json:"storageKey"`
	RejectionReason   *string              `json:"rejectionReason,omitempty"`
	ResubmittedFrom   *string              `json:"resubmittedFrom,omitempty"`
	EditHistory       []domain.EditRecord  `json:"editHistory"`
	CurrentReviewerID *string              `json:"currentReviewerID,omitempty"`
	ReviewClaimedAt   *time.Time           `json:"reviewClaimedAt,omitempty"`
	LastReviewPing    *time.Time           `json:"lastReviewPing,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	CreatedBy         string               `json:"createdBy"`
	LastUpdatedAt     time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy     string               `json:"lastUpdatedBy"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	history := inv.EditHistory
	if history == nil {
		history = []domain.EditRecord{}
	}
	return InvoiceResponse{
		InvoiceID:         inv.InvoiceID,
		InvoiceNumber:     inv.InvoiceNumber,
		Status:            inv.Status,
		SubmitterID:       inv.SubmitterID,
		Amount:            utils.FormatOptionalAmount(inv.Amount),
		StorageKey:        inv.StorageKey,
		RejectionReason:   inv.RejectionReason,
		ResubmittedFrom:   inv.ResubmittedFrom,
		EditHistory:       history,
		CurrentReviewerID: inv.CurrentReviewerID,
		ReviewClaimedAt:   inv.ReviewClaimedAt,
		LastReviewPing:    inv.LastReviewPing,
		CreatedAt:         inv.CreatedAt,
		CreatedBy:         inv.CreatedBy,
		LastUpdatedAt:     inv.LastUpdatedAt,
		LastUpdatedBy:     inv.LastUpdatedBy,
	}
}

// ListInvoicesResponse wraps a page of invoices.
type ListInvoicesResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
}

// ToListInvoicesResponse converts a slice of domain.Invoice to the list response.
func ToListInvoicesResponse(invoices []domain.Invoice) ListInvoicesResponse {
	res := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		res[i] = ToInvoiceResponse(&invoices[i])
	}
	return ListInvoicesResponse{Invoices: res}
}
