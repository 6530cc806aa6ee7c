package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxMaintenanceRepository owns the activity log and the age-based cleanup queries.
type PgxMaintenanceRepository struct {
	BaseRepository
}

func newPgxMaintenanceRepository(pool *pgxpool.Pool) *PgxMaintenanceRepository {
	return &PgxMaintenanceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var (
	_ portsrepo.ActivityLogRepository = (*PgxMaintenanceRepository)(nil)
	_ portsrepo.MaintenanceRepository = (*PgxMaintenanceRepository)(nil)
)

// SaveActivityLog appends one activity log row.
func (r *PgxMaintenanceRepository) SaveActivityLog(ctx context.Context, entry domain.ActivityLog) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO activity_logs (log_id, entity_type, entity_id, action, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.LogID, entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save activity log for %s %s: %w", entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before the given time.
func (r *PgxMaintenanceRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteActivityLogsBefore removes activity log rows created before the given time.
func (r *PgxMaintenanceRepository) DeleteActivityLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM activity_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activity logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
