package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Order is the persisted record for one purchase.
type Order struct {
	ID            string            `json:"id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	AmountCents   int64             `json:"amount_cents"`
	Currency      string            `json:"currency"`
	Status        Status            `json:"status"`
	Fulfillment   FulfillmentStatus `json:"fulfillment"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// CreateOrderInput carries the fields for a new order. Now is injectable for
// deterministic tests; zero means "use the wall clock".
type CreateOrderInput struct {
	CustomerName  string
	CustomerEmail string
	AmountCents   int64
	Currency      string
	Now           time.Time
}

// Store is the order persistence boundary. UpdateOrderStatus re-validates the
// payment edge against the stored status before writing, so an illegal
// transition can never reach storage regardless of which handler called it.
type Store interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, limit int) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id string, to Status, now time.Time) (Order, error)
	UpdateFulfillment(ctx context.Context, id string, to FulfillmentStatus, now time.Time) (Order, error)
	Close() error
}

const defaultListLimit = 100

// NewOrderID returns a new ULID string. ULIDs sort by creation time, which
// keeps "newest first" listings index-friendly.
func NewOrderID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// validateCreate normalizes and checks a CreateOrderInput.
func validateCreate(in *CreateOrderInput) error {
	if in.AmountCents <= 0 {
		return fmt.Errorf("%w: amount_cents must be positive", ErrInvalidInput)
	}
	if in.CustomerName == "" && in.CustomerEmail == "" {
		return fmt.Errorf("%w: customer name or email is required", ErrInvalidInput)
	}
	if in.Currency == "" {
		in.Currency = "KRW"
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return nil
}
