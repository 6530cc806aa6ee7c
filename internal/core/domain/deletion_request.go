package domain

import "time"

// InvoiceDeletionRequest asks an administrator to irreversibly delete an invoice.
type InvoiceDeletionRequest struct {
	RequestID       string        `json:"requestID"`
	InvoiceID       string        `json:"invoiceID"`
	RequestedBy     string        `json:"requestedBy"`
	Reason          string        `json:"reason"`
	Status          RequestStatus `json:"status"`
	ReviewedBy      *string       `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	AuditFields
}
