package domain

import "time"

// ActivityLog records one workflow transition for audit purposes.
type ActivityLog struct {
	LogID      string    `json:"logID"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityID"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorID"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Entity types used in activity logs.
const (
	EntityInvoice         = "invoice"
	EntityBudgetRequest   = "budget_request"
	EntityDeletionRequest = "deletion_request"
	EntityLedger          = "ledger"
)
