package notify

import (
	"context"
	"errors"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
)

// Fanout delivers each notification to every channel. One failing channel does not stop the rest.
type Fanout []ports.Notifier

var _ ports.Notifier = Fanout(nil)

// NewFanout drops nil channels.
func NewFanout(notifiers ...ports.Notifier) Fanout {
	out := make(Fanout, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (f Fanout) Notify(ctx context.Context, userID string, kind ports.NotificationKind, payload map[string]string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, userID, kind, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
