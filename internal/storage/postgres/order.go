package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const insertOrder = `
INSERT INTO orders (uid, payment_intent_id, basket, amount, total, created)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (uid, payment_intent_id) DO NOTHING`

// Create persists a new order. The basket snapshot is stored as JSONB.
// A second write for the same payment intent returns order.ErrAlreadyExists.
func (r *OrderRepository) Create(ctx context.Context, rec *order.Record) error {
	items, err := json.Marshal(rec.Basket)
	if err != nil {
		return errors.Wrap(err, "marshal basket")
	}
	total := decimal.New(rec.Amount, -2)

	tag, err := r.pool.Exec(ctx, insertOrder,
		rec.UID, rec.PaymentIntentID, items, rec.Amount, total, rec.Created,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", rec.PaymentIntentID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrAlreadyExists
	}
	return nil
}

const selectOrdersByUser = `
SELECT payment_intent_id, basket, amount, created
FROM orders
WHERE uid = $1
ORDER BY created DESC, payment_intent_id`

// ListByUser returns the shopper's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, uid string) ([]order.Record, error) {
	rows, err := r.pool.Query(ctx, selectOrdersByUser, uid)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var out []order.Record
	for rows.Next() {
		var (
			rec     = order.Record{UID: uid}
			items   []byte
			created time.Time
		)
		if err := rows.Scan(&rec.PaymentIntentID, &items, &rec.Amount, &created); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		if err := json.Unmarshal(items, &rec.Basket); err != nil {
			return nil, errors.Wrapf(err, "unmarshal basket of %q", rec.PaymentIntentID)
		}
		if rec.Basket == nil {
			rec.Basket = []basket.Item{}
		}
		rec.Created = created.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return out, nil
}
