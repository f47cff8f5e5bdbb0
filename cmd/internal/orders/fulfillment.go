package orders

import (
	"fmt"
	"strings"
)

// FulfillmentStatus is the warehouse lifecycle state of a physical order. It
// is a separate machine from Status: an order can be paid while still
// preparing, and the two tables never share edges.
type FulfillmentStatus string

const (
	FulfillPending     FulfillmentStatus = "pending"
	FulfillConfirmed   FulfillmentStatus = "confirmed"
	FulfillPreparing   FulfillmentStatus = "preparing"
	FulfillReadyToShip FulfillmentStatus = "ready_to_ship"
	FulfillShipping    FulfillmentStatus = "shipping"
	FulfillDelivered   FulfillmentStatus = "delivered"
	FulfillCancelled   FulfillmentStatus = "cancelled"
	FulfillRefunded    FulfillmentStatus = "refunded"
)

// FulfillmentStatuses lists all fulfillment statuses.
func FulfillmentStatuses() []FulfillmentStatus {
	return []FulfillmentStatus{
		FulfillPending, FulfillConfirmed, FulfillPreparing, FulfillReadyToShip,
		FulfillShipping, FulfillDelivered, FulfillCancelled, FulfillRefunded,
	}
}

// ParseFulfillmentStatus validates a raw fulfillment status string.
func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	v := FulfillmentStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FulfillmentStatuses() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown fulfillment status %q", ErrInvalidInput, s)
}

// fulfillmentEdges is forward-only: goods move toward delivery, with
// cancellation possible until the parcel is handed to the carrier and refund
// only after delivery. Idempotent self-loops mirror the payment machine.
var fulfillmentEdges = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillPending:     {FulfillConfirmed, FulfillCancelled},
	FulfillConfirmed:   {FulfillPreparing, FulfillCancelled},
	FulfillPreparing:   {FulfillReadyToShip, FulfillCancelled},
	FulfillReadyToShip: {FulfillShipping, FulfillCancelled},
	FulfillShipping:    {FulfillDelivered},
	FulfillDelivered:   {FulfillDelivered, FulfillRefunded},
	FulfillCancelled:   {FulfillCancelled},
	FulfillRefunded:    {FulfillRefunded},
}

// CanAdvanceFulfillment reports whether from -> to is a legal fulfillment edge.
func CanAdvanceFulfillment(from, to FulfillmentStatus) bool {
	for _, next := range fulfillmentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AdvanceFulfillment validates from -> to and returns the new status.
func AdvanceFulfillment(from, to FulfillmentStatus) (FulfillmentStatus, error) {
	if !CanAdvanceFulfillment(from, to) {
		return "", fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}
