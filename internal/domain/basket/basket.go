package basket

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a single line in the shopper's basket.
type Item struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Rating int             `json:"rating"`
	Image  string          `json:"image"`
}

// Basket is the ordered list of items a shopper selected before checkout.
//
// Version identifies the basket reference: it changes on every mutation
// applied by Reduce and never otherwise, so two reads with equal versions
// hold the same items.
type Basket struct {
	Items   []Item `json:"items"`
	Version uint64 `json:"version"`
}

// Len returns the number of items in the basket.
func (b Basket) Len() int {
	return len(b.Items)
}

// IsEmpty reports whether the basket has no items.
func (b Basket) IsEmpty() bool {
	return len(b.Items) == 0
}

// Snapshot returns a copy of the items that is safe to retain after the
// basket is mutated.
func (b Basket) Snapshot() []Item {
	out := make([]Item, len(b.Items))
	copy(out, b.Items)
	return out
}

// Total returns the sum of item prices in major currency units.
func Total(b Basket) decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Price)
	}
	return total
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount to the provider's minor units
// (cents for USD). The result is rounded half away from zero.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Mul(hundred).Round(0).IntPart()
}

// Store holds the shared basket state of every shopper.
type Store interface {
	// Get returns the current basket. A shopper without a basket gets an
	// empty basket with version 0.
	Get(ctx context.Context, uid string) (Basket, error)
	// Dispatch applies the action through Reduce and returns the new basket.
	Dispatch(ctx context.Context, uid string, action Action) (Basket, error)
}
