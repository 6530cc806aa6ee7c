package services

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
)

// SweeperSvcFacade defines the periodic repair and hygiene tasks. Each task is idempotent.
type SweeperSvcFacade interface {
	// ReclaimStuckClaims resets in-review invoices whose lease has not been pinged since the stale threshold.
	ReclaimStuckClaims(ctx context.Context, now time.Time) (*domain.ClaimSweepReport, error)

	// AuditOrphans compares stored objects with invoice references. It never deletes.
	AuditOrphans(ctx context.Context) (*domain.OrphanReport, error)

	// PruneExpired deletes expired sessions and activity logs older than the retention window.
	PruneExpired(ctx context.Context, now time.Time) (*domain.PruneReport, error)

	// AuditLedger verifies the chain of every account.
	AuditLedger(ctx context.Context) (*domain.LedgerAuditReport, error)

	// RunHygiene runs AuditOrphans, PruneExpired and AuditLedger; a failing task does not stop the others.
	RunHygiene(ctx context.Context, now time.Time) *domain.HygieneReport
}
