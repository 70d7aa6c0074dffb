package order

import (
	"context"
	"fmt"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// Sentinel errors for order placement.
var (
	ErrMissingUser      = fmt.Errorf("user id required")
	ErrIntentNotSettled = fmt.Errorf("payment intent is not confirmed")
)

// Service writes order records for confirmed payments.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by orders.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// Place records the basket snapshot against a confirmed intent. Amount and
// creation time come from the provider, not from the basket.
func (s *Service) Place(ctx context.Context, uid string, intent *payment.Intent, items []basket.Item) (*Record, error) {
	if uid == "" {
		return nil, ErrMissingUser
	}
	if !intent.Confirmed() {
		return nil, ErrIntentNotSettled
	}

	rec := &Record{
		UID:             uid,
		PaymentIntentID: intent.ID,
		Basket:          items,
		Amount:          intent.Amount,
		Created:         intent.Created,
	}
	if err := s.orders.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return rec, nil
}

// List returns the shopper's orders, newest first.
func (s *Service) List(ctx context.Context, uid string) ([]Record, error) {
	if uid == "" {
		return nil, ErrMissingUser
	}
	records, err := s.orders.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return records, nil
}
