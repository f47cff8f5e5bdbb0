package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the dev/test fallback when no database is configured. It
// applies the same transition validation as the Postgres store.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]Order
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// CreateOrder validates input and stores a new pending order.
func (s *MemoryStore) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if err := validateCreate(&in); err != nil {
		return Order{}, err
	}

	id, err := NewOrderID(in.Now)
	if err != nil {
		return Order{}, err
	}

	o := Order{
		ID:            id,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		Status:        StatusPending,
		Fulfillment:   FulfillPending,
		CreatedAt:     in.Now,
		UpdatedAt:     in.Now,
	}

	s.mu.Lock()
	s.orders[id] = o
	s.mu.Unlock()
	return o, nil
}

// GetOrder fetches an order by id.
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListOrders returns up to limit orders, newest first.
func (s *MemoryStore) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	// ULIDs sort by creation time, so descending id is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateOrderStatus applies a validated payment transition.
func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, to Status, now time.Time) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}

	next, err := Transition(o.Status, to)
	if err != nil {
		return Order{}, err
	}

	o.Status = next
	o.UpdatedAt = now
	s.orders[id] = o
	return o, nil
}

// UpdateFulfillment applies a validated fulfillment transition.
func (s *MemoryStore) UpdateFulfillment(ctx context.Context, id string, to FulfillmentStatus, now time.Time) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}

	next, err := AdvanceFulfillment(o.Fulfillment, to)
	if err != nil {
		return Order{}, err
	}

	o.Fulfillment = next
	o.UpdatedAt = now
	s.orders[id] = o
	return o, nil
}
