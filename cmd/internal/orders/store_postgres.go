package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements order persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it. Status
// updates are serialized per order via SELECT ... FOR UPDATE so the legality
// check and the write are one atomic step.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the order store (default "dalkak").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("orders: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "dalkak"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("orders: nil pool")
	}
	return st, nil
}

// Close is a no-op: the pool is owned by the app.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) table() string {
	return `"` + s.schema + `".orders`
}

const orderColumns = `id, customer_name, customer_email, amount_cents, currency, status, fulfillment, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &o.AmountCents, &o.Currency,
		&o.Status, &o.Fulfillment, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// CreateOrder validates input and inserts a new pending order.
func (s *PostgresStore) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if err := validateCreate(&in); err != nil {
		return Order{}, err
	}

	id, err := NewOrderID(in.Now)
	if err != nil {
		return Order{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+orderColumns,
		id, in.CustomerName, in.CustomerEmail, in.AmountCents, in.Currency,
		StatusPending, FulfillPending, in.Now,
	)
	return scanOrder(row)
}

// GetOrder fetches an order by id.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM `+s.table()+`
		WHERE id = $1`,
		id,
	)
	return scanOrder(row)
}

// ListOrders returns up to limit orders, newest first.
func (s *PostgresStore) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM `+s.table()+`
		ORDER BY id DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus locks the order row, validates the payment edge against
// the stored status, and writes the new status. An illegal edge rolls back
// without touching the row.
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, to Status, now time.Time) (Order, error) {
	return s.updateLocked(ctx, id, now, func(o *Order) error {
		next, err := Transition(o.Status, to)
		if err != nil {
			return err
		}
		o.Status = next
		return nil
	})
}

// UpdateFulfillment locks the order row and applies a fulfillment edge.
func (s *PostgresStore) UpdateFulfillment(ctx context.Context, id string, to FulfillmentStatus, now time.Time) (Order, error) {
	return s.updateLocked(ctx, id, now, func(o *Order) error {
		next, err := AdvanceFulfillment(o.Fulfillment, to)
		if err != nil {
			return err
		}
		o.Fulfillment = next
		return nil
	})
}

func (s *PostgresStore) updateLocked(ctx context.Context, id string, now time.Time, mutate func(*Order) error) (Order, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM `+s.table()+`
		WHERE id = $1
		FOR UPDATE`,
		id,
	))
	if err != nil {
		return Order{}, err
	}

	if err := mutate(&o); err != nil {
		return Order{}, err
	}
	o.UpdatedAt = now

	if _, err := tx.Exec(ctx, `
		UPDATE `+s.table()+`
		SET status = $2, fulfillment = $3, updated_at = $4
		WHERE id = $1`,
		o.ID, o.Status, o.Fulfillment, o.UpdatedAt,
	); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}
