package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
)

// ErrAlreadyExists is returned when an order for the same payment intent was
// already written.
var ErrAlreadyExists = errors.New("order already exists")

// Record is the persisted result of one confirmed payment. It lives under
// users/{UID}/orders/{PaymentIntentID} and is never updated or deleted by
// the checkout.
type Record struct {
	UID             string
	PaymentIntentID string
	Basket          []basket.Item
	Amount          int64
	Created         time.Time
}

// Repository defines persistence operations for order records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	// ListByUser returns the shopper's orders, newest first.
	ListByUser(ctx context.Context, uid string) ([]Record, error)
}
