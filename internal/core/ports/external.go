package ports

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by ObjectStore.Delete when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the object storage collaborator holding uploaded invoice images.
type ObjectStore interface {
	// Delete removes the object. Returns ErrObjectNotFound if it was already gone.
	Delete(ctx context.Context, key string) error

	// List returns every object key under the store's prefix.
	List(ctx context.Context) ([]string, error)
}

// NotificationKind names the event a notification is about.
type NotificationKind string

const (
	NotifyInvoiceAccepted   NotificationKind = "invoice_accepted"
	NotifyInvoiceRejected   NotificationKind = "invoice_rejected"
	NotifyInvoiceReReview   NotificationKind = "invoice_re_review"
	NotifyInvoiceReclaimed  NotificationKind = "invoice_reclaimed"
	NotifyBudgetApproved    NotificationKind = "budget_approved"
	NotifyBudgetRejected    NotificationKind = "budget_rejected"
	NotifyDeletionApproved  NotificationKind = "deletion_approved"
	NotifyDeletionRejected  NotificationKind = "deletion_rejected"
	NotifyBalanceAdjusted   NotificationKind = "balance_adjusted"
	NotifyInvoiceClaimState NotificationKind = "invoice_claim_state"
)

// Notifier is the fire-and-forget notification collaborator. Callers log and ignore its errors.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind NotificationKind, payload map[string]string) error
}
