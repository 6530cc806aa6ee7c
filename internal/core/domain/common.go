package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // Actor ID
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // Actor ID
}

// NewAuditFields stamps both creation and update fields with the same actor and time.
func NewAuditFields(actorID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     actorID,
		LastUpdatedAt: now,
		LastUpdatedBy: actorID,
	}
}

// ReviewDecision is the verdict on a pending request.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// IsValid reports whether d is a known decision.
func (d ReviewDecision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// RequestStatus is the lifecycle state shared by budget and deletion requests.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Minimum and maximum lengths for free-text fields.
const (
	MinRejectionReasonLen = 10
	MinDeletionReasonLen  = 10
	MinJustificationLen   = 5
	MaxJustificationLen   = 1000
	MaxReasonLen          = 1000
)
