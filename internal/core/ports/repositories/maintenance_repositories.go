package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
)

// ActivityLogRepository records workflow transitions
type ActivityLogRepository interface {
	SaveActivityLog(ctx context.Context, entry domain.ActivityLog) error
}

// MaintenanceRepository defines the age-based deletions used by the sweeper
type MaintenanceRepository interface {
	// DeleteExpiredSessions removes sessions that expired before the given time.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)

	// DeleteActivityLogsBefore removes activity log rows created before the given time.
	DeleteActivityLogsBefore(ctx context.Context, before time.Time) (int64, error)
}
