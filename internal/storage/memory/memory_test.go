package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

func TestBasketStore(t *testing.T) {
	ctx := context.Background()
	s := NewBasketStore()

	b, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
	assert.Zero(t, b.Version)

	b, err = s.Dispatch(ctx, "u1", basket.AddToBasket(basket.Item{ID: "a"}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Version)

	// Returned baskets do not alias stored state.
	b.Items[0].ID = "mutated"
	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Items[0].ID)

	_, err = s.Dispatch(ctx, "u1", basket.Action{Type: "BOGUS"})
	require.ErrorIs(t, err, basket.ErrUnknownAction)

	b, err = s.Dispatch(ctx, "u1", basket.EmptyBasket())
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, uint64(2), b.Version)
}

func TestBasketStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := NewBasketStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Dispatch(ctx, "u1", basket.AddToBasket(basket.Item{ID: "x"}))
		}()
	}
	wg.Wait()

	b, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, b.Len())
	assert.Equal(t, uint64(50), b.Version)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	t0 := time.Unix(1700000000, 0)

	require.NoError(t, r.Create(ctx, &order.Record{UID: "u1", PaymentIntentID: "pi_old", Amount: 100, Created: t0}))
	require.NoError(t, r.Create(ctx, &order.Record{UID: "u1", PaymentIntentID: "pi_new", Amount: 200, Created: t0.Add(time.Minute)}))
	require.NoError(t, r.Create(ctx, &order.Record{UID: "u2", PaymentIntentID: "pi_other", Amount: 300, Created: t0}))

	err := r.Create(ctx, &order.Record{UID: "u1", PaymentIntentID: "pi_old", Amount: 999})
	require.ErrorIs(t, err, order.ErrAlreadyExists)

	got, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pi_new", got[0].PaymentIntentID)
	assert.Equal(t, "pi_old", got[1].PaymentIntentID)
	assert.Equal(t, int64(100), got[1].Amount, "existing record is never overwritten")

	none, err := r.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
