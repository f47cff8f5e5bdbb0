// Package orders owns the order lifecycle: the payment status machine, the
// fulfillment status machine, command resolution, and persistence.
//
// Two status vocabularies coexist on purpose. Status tracks the payment
// lifecycle of every order; FulfillmentStatus tracks the warehouse flow for
// physical goods. They are distinct machines with distinct edge tables and
// are never unified.
package orders

import (
	"fmt"
	"strings"
)

// Status is the payment lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Statuses lists all payment statuses, for validation and tests.
func Statuses() []Status {
	return []Status{StatusPending, StatusPaid, StatusCancelled, StatusRefunded}
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusPending, StatusPaid, StatusCancelled, StatusRefunded:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// statusEdges is the allowed-edge table for the payment machine. Self-loops on
// paid/cancelled/refunded tolerate duplicate upstream events: a payment
// webhook may fire twice.
var statusEdges = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusPaid, StatusRefunded},
	StatusCancelled: {StatusCancelled},
	StatusRefunded:  {StatusRefunded},
}

// CanTransition reports whether from -> to is a legal payment edge.
func CanTransition(from, to Status) bool {
	for _, next := range statusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns the new status, or an
// IllegalTransitionError. Order status is only ever mutated through this
// check; nothing writes a status directly.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return "", IllegalTransitionError{From: from, To: to}
	}
	return to, nil
}

// IsTerminal reports whether no edge leaves s other than its self-loop.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// NotifiesOnEntry reports whether entering s emits a customer notification.
func (s Status) NotifiesOnEntry() bool {
	return s == StatusCancelled || s == StatusRefunded
}
