package notify

import (
	"context"
	"log/slog"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
)

// LogNotifier writes notifications to the structured log. Used when no push channel is configured.
type LogNotifier struct{}

var _ ports.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, userID string, kind ports.NotificationKind, payload map[string]string) error {
	args := make([]any, 0, len(payload)+2)
	args = append(args, slog.String("user_id", userID), slog.String("kind", string(kind)))
	for k, v := range payload {
		args = append(args, slog.String(k, v))
	}
	middleware.GetLoggerFromCtx(ctx).Info("Notification", args...)
	return nil
}
