package orders

import "testing"

func TestParseFulfillmentStatus(t *testing.T) {
	t.Parallel()

	for _, s := range FulfillmentStatuses() {
		got, err := ParseFulfillmentStatus(string(s))
		if err != nil {
			t.Fatalf("ParseFulfillmentStatus(%q): %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseFulfillmentStatus(%q) = %q", s, got)
		}
	}

	for _, bad := range []string{"", "packed", "ready to ship", "returned"} {
		if _, err := ParseFulfillmentStatus(bad); err == nil {
			t.Fatalf("ParseFulfillmentStatus(%q): expected error", bad)
		}
	}
}

// TestAdvanceFulfillmentEdges enumerates every ordered pair of fulfillment
// statuses against the full edge table. The warehouse flow is forward-only:
// no pair may skip a step or move backwards.
func TestAdvanceFulfillmentEdges(t *testing.T) {
	t.Parallel()

	allowed := map[[2]FulfillmentStatus]bool{
		{FulfillPending, FulfillConfirmed}:      true,
		{FulfillPending, FulfillCancelled}:      true,
		{FulfillConfirmed, FulfillPreparing}:    true,
		{FulfillConfirmed, FulfillCancelled}:    true,
		{FulfillPreparing, FulfillReadyToShip}:  true,
		{FulfillPreparing, FulfillCancelled}:    true,
		{FulfillReadyToShip, FulfillShipping}:   true,
		{FulfillReadyToShip, FulfillCancelled}:  true,
		{FulfillShipping, FulfillDelivered}:     true,
		{FulfillDelivered, FulfillDelivered}:    true,
		{FulfillDelivered, FulfillRefunded}:     true,
		{FulfillCancelled, FulfillCancelled}:    true,
		{FulfillRefunded, FulfillRefunded}:      true,
	}

	for _, from := range FulfillmentStatuses() {
		for _, to := range FulfillmentStatuses() {
			got, err := AdvanceFulfillment(from, to)
			if allowed[[2]FulfillmentStatus{from, to}] {
				if err != nil {
					t.Fatalf("AdvanceFulfillment(%s, %s): %v", from, to, err)
				}
				if got != to {
					t.Fatalf("AdvanceFulfillment(%s, %s) = %s", from, to, got)
				}
				continue
			}
			if err == nil {
				t.Fatalf("AdvanceFulfillment(%s, %s): expected rejection", from, to)
			}
			if !IsIllegalTransition(err) {
				t.Fatalf("AdvanceFulfillment(%s, %s): error %v is not ErrIllegalTransition", from, to, err)
			}
		}
	}
}

// Cancellation closes at the carrier hand-off: a shipping parcel can no longer
// be cancelled, only delivered and then refunded.
func TestFulfillmentCancelWindow(t *testing.T) {
	t.Parallel()

	if CanAdvanceFulfillment(FulfillShipping, FulfillCancelled) {
		t.Fatal("shipping -> cancelled must be rejected")
	}
	if CanAdvanceFulfillment(FulfillDelivered, FulfillCancelled) {
		t.Fatal("delivered -> cancelled must be rejected")
	}
	if !CanAdvanceFulfillment(FulfillReadyToShip, FulfillCancelled) {
		t.Fatal("ready_to_ship -> cancelled must be allowed")
	}
}
