// Package notify holds the notification collaborators used by the workflow services.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"google.golang.org/api/option"
)

// messageSender is the part of the FCM client the notifier uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

var titles = map[ports.NotificationKind]string{
	ports.NotifyInvoiceAccepted:   "Invoice accepted",
	ports.NotifyInvoiceRejected:   "Invoice rejected",
	ports.NotifyInvoiceReReview:   "Invoice sent back for review",
	ports.NotifyInvoiceReclaimed:  "Review claim expired",
	ports.NotifyBudgetApproved:    "Budget request approved",
	ports.NotifyBudgetRejected:    "Budget request rejected",
	ports.NotifyDeletionApproved:  "Invoice deleted",
	ports.NotifyDeletionRejected:  "Deletion request rejected",
	ports.NotifyBalanceAdjusted:   "Balance adjusted",
	ports.NotifyInvoiceClaimState: "Invoice review update",
}

// FCMNotifier publishes notifications to a per-user Firebase Cloud Messaging topic.
// Client apps subscribe to "user-<id>" after login.
type FCMNotifier struct {
	client messageSender
}

var _ ports.Notifier = (*FCMNotifier)(nil)

// NewFCMNotifier creates a notifier from a service account credentials file.
func NewFCMNotifier(ctx context.Context, credentialsFile string) (*FCMNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &FCMNotifier{client: client}, nil
}

// Topic returns the topic a user's devices subscribe to.
func Topic(userID string) string {
	return "user-" + userID
}

func (n *FCMNotifier) Notify(ctx context.Context, userID string, kind ports.NotificationKind, payload map[string]string) error {
	message := buildMessage(userID, kind, payload)
	id, err := n.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send %s notification to %s: %w", kind, userID, err)
	}
	middleware.GetLoggerFromCtx(ctx).Debug("Push notification sent",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("message_id", id))
	return nil
}

func buildMessage(userID string, kind ports.NotificationKind, payload map[string]string) *messaging.Message {
	data := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["kind"] = string(kind)

	title := titles[kind]
	if title == "" {
		title = string(kind)
	}

	return &messaging.Message{
		Topic: Topic(userID),
		Data:  data,
		Notification: &messaging.Notification{
			Title: title,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: title},
					Sound: "default",
				},
			},
		},
	}
}
