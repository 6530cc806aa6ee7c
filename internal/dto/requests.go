package dto

import (
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/utils"
	"github.com/shopspring/decimal"
)

// CreateBudgetRequestRequest asks for an advance credit.
type CreateBudgetRequestRequest struct {
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"500.00"`
	Justification string          `json:"justification" binding:"required"`
}

// CreateDeletionRequestRequest asks an administrator to delete an invoice.
type CreateDeletionRequestRequest struct {
	InvoiceID string `json:"invoiceID" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// ReviewRequestRequest is the verdict on a pending budget or deletion request.
type ReviewRequestRequest struct {
	Decision        domain.ReviewDecision `json:"decision" binding:"required,oneof=approve reject"`
	RejectionReason string                `json:"rejectionReason"`
}

// ListRequestsParams defines query parameters for listing requests.
type ListRequestsParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// BudgetRequestResponse defines the data returned for a budget request.
type BudgetRequestResponse struct {
	RequestID               string               `json:"requestID"`
	UserID                  string               `json:"userID"`
	RequestedAmount         string               `json:"requestedAmount" example:"500.00"`
	CurrentBalanceAtRequest string               `json:"currentBalanceAtRequest" example:"100.00"`
	Justification           string               `json:"justification"`
	Status                  domain.RequestStatus `json:"status"`
	ReviewerID              *string              `json:"reviewerID,omitempty"`
	ReviewedAt              *time.Time           `json:"reviewedAt,omitempty"`
	RejectionReason         *string              `json:"rejectionReason,omitempty"`
	CreatedAt               time.Time            `json:"createdAt"`
}

// ToBudgetRequestResponse converts a domain.BudgetRequest to BudgetRequestResponse DTO
func ToBudgetRequestResponse(br *domain.BudgetRequest) BudgetRequestResponse {
	return BudgetRequestResponse{
		RequestID:               br.RequestID,
		UserID:                  br.UserID,
		RequestedAmount:         utils.FormatAmount(br.RequestedAmount),
		CurrentBalanceAtRequest: utils.FormatAmount(br.CurrentBalanceAtRequest),
		Justification:           br.Justification,
		Status:                  br.Status,
		ReviewerID:              br.ReviewerID,
		ReviewedAt:              br.ReviewedAt,
		RejectionReason:         br.RejectionReason,
		CreatedAt:               br.CreatedAt,
	}
}

// ListBudgetRequestsResponse wraps a page of budget requests.
type ListBudgetRequestsResponse struct {
	Requests []BudgetRequestResponse `json:"requests"`
}

// ToListBudgetRequestsResponse converts a slice of domain.BudgetRequest to the list response.
func ToListBudgetRequestsResponse(requests []domain.BudgetRequest) ListBudgetRequestsResponse {
	res := make([]BudgetRequestResponse, len(requests))
	for i := range requests {
		res[i] = ToBudgetRequestResponse(&requests[i])
	}
	return ListBudgetRequestsResponse{Requests: res}
}

// DeletionRequestResponse defines the data returned for an invoice deletion request.
type DeletionRequestResponse struct {
	RequestID       string               `json:"requestID"`
	InvoiceID       string               `json:"invoiceID"`
	RequestedBy     string               `json:"requestedBy"`
	Reason          string               `json:"reason"`
	Status          domain.RequestStatus `json:"status"`
	ReviewedBy      *string              `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewedAt,omitempty"`
	RejectionReason *string              `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// ToDeletionRequestResponse converts a domain.InvoiceDeletionRequest to DeletionRequestResponse DTO
func ToDeletionRequestResponse(dr *domain.InvoiceDeletionRequest) DeletionRequestResponse {
	return DeletionRequestResponse{
		RequestID:       dr.RequestID,
		InvoiceID:       dr.InvoiceID,
		RequestedBy:     dr.RequestedBy,
		Reason:          dr.Reason,
		Status:          dr.Status,
		ReviewedBy:      dr.ReviewedBy,
		ReviewedAt:      dr.ReviewedAt,
		RejectionReason: dr.RejectionReason,
		CreatedAt:       dr.CreatedAt,
	}
}

// ListDeletionRequestsResponse wraps a page of deletion requests.
type ListDeletionRequestsResponse struct {
	Requests []DeletionRequestResponse `json:"requests"`
}

// ToListDeletionRequestsResponse converts a slice of domain.InvoiceDeletionRequest to the list response.
func ToListDeletionRequestsResponse(requests []domain.InvoiceDeletionRequest) ListDeletionRequestsResponse {
	res := make([]DeletionRequestResponse, len(requests))
	for i := range requests {
		res[i] = ToDeletionRequestResponse(&requests[i])
	}
	return ListDeletionRequestsResponse{Requests: res}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
