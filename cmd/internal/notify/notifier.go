// Package notify broadcasts order lifecycle events to operators.
//
// Notification is best-effort and at-least-once by contract: a failed or
// dropped notification never rolls back the state change that produced it.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Event is one order lifecycle notification.
type Event struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers events to an external channel.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to the structured log. It is the default channel
// and the floor every deployment gets even with no dashboard connected.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify logs the event. It never fails.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notify.event",
		"type", ev.Type,
		"order_id", ev.OrderID,
		"status", ev.Status,
		"message", ev.Message,
	)
	return nil
}

// Multi fans an event out to several notifiers. Delivery stays best-effort:
// one notifier failing does not stop the others, and the first error is
// returned only for logging.
type Multi []Notifier

// Notify delivers ev to every member.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
