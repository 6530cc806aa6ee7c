package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/SscSPs/invoice_review_app/internal/utils/retry"
	"github.com/google/uuid"
)

// BaseService provides common functionality for all services
type BaseService struct {
	activityRepo portsrepo.ActivityLogRepository
	notifier     ports.Notifier
	clock        func() time.Time
	retryPolicy  retry.Policy
	transient    retry.Classifier
}

// ServiceOption is a functional option shared by all services
type ServiceOption func(*BaseService)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.clock = clock
	}
}

// WithNotifier adds the notification collaborator.
func WithNotifier(notifier ports.Notifier) ServiceOption {
	return func(s *BaseService) {
		s.notifier = notifier
	}
}

// WithActivityLog adds the activity log repository.
func WithActivityLog(repo portsrepo.ActivityLogRepository) ServiceOption {
	return func(s *BaseService) {
		s.activityRepo = repo
	}
}

// WithRetry retries whole operations on errors the classifier reports as transient.
func WithRetry(policy retry.Policy, transient retry.Classifier) ServiceOption {
	return func(s *BaseService) {
		s.retryPolicy = policy
		s.transient = transient
	}
}

func newBaseService(options ...ServiceOption) BaseService {
	base := BaseService{
		clock:       time.Now,
		retryPolicy: retry.DefaultPolicy,
	}
	for _, option := range options {
		option(&base)
	}
	return base
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// now returns the current time at the store's timestamp precision.
func (s *BaseService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// withRetry runs an atomic unit again when it fails transiently. fn must start its own transaction.
func (s *BaseService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, s.retryPolicy, s.transient, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.LogDebug(ctx, "Retrying operation after transient failure", slog.String("operation", op), slog.Int("attempt", attempt))
		}
		return fn(ctx)
	})
}

// notify sends a notification after commit. Failures are logged and otherwise ignored.
func (s *BaseService) notify(ctx context.Context, userID string, kind ports.NotificationKind, payload map[string]string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, payload); err != nil {
		s.LogError(ctx, err, "Failed to send notification",
			slog.String("user_id", userID),
			slog.String("kind", string(kind)))
	}
}

// recordActivity appends an activity log row. It must not be called while a transaction is open.
func (s *BaseService) recordActivity(ctx context.Context, entityType, entityID, action, actorID, details string) {
	if s.activityRepo == nil {
		return
	}
	entry := domain.ActivityLog{
		LogID:      uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Details:    details,
		CreatedAt:  s.now(),
	}
	if err := s.activityRepo.SaveActivityLog(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to record activity",
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.String("action", action))
	}
}

func requireReviewer(actor domain.Actor) error {
	if !actor.CanReview() {
		return fmt.Errorf("%w: only reviewers and administrators may do this", apperrors.ErrForbidden)
	}
	return nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only administrators may do this", apperrors.ErrForbidden)
	}
	return nil
}

// canSee reports whether actor may read a record owned by ownerID.
func canSee(actor domain.Actor, ownerID string) bool {
	return actor.CanReview() || actor.ID == ownerID
}
