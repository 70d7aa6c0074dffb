// Package memory provides process-local basket and order stores for local
// runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

var (
	_ basket.Store     = (*BasketStore)(nil)
	_ order.Repository = (*OrderRepository)(nil)
)

// BasketStore keeps baskets in a map.
type BasketStore struct {
	mu      sync.Mutex
	baskets map[string]basket.Basket
}

// NewBasketStore creates an empty BasketStore.
func NewBasketStore() *BasketStore {
	return &BasketStore{baskets: make(map[string]basket.Basket)}
}

func (s *BasketStore) Get(_ context.Context, uid string) (basket.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.baskets[uid]
	return basket.Basket{Items: b.Snapshot(), Version: b.Version}, nil
}

func (s *BasketStore) Dispatch(_ context.Context, uid string, action basket.Action) (basket.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := basket.Reduce(s.baskets[uid], action)
	if err != nil {
		return basket.Basket{}, err
	}
	s.baskets[uid] = next
	return basket.Basket{Items: next.Snapshot(), Version: next.Version}, nil
}

// OrderRepository keeps order records in a map keyed by uid and intent id.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]map[string]order.Record
}

// NewOrderRepository creates an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]map[string]order.Record)}
}

func (r *OrderRepository) Create(_ context.Context, rec *order.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.orders[rec.UID]
	if !ok {
		byID = make(map[string]order.Record)
		r.orders[rec.UID] = byID
	}
	if _, exists := byID[rec.PaymentIntentID]; exists {
		return order.ErrAlreadyExists
	}
	stored := *rec
	stored.Basket = append([]basket.Item(nil), rec.Basket...)
	byID[rec.PaymentIntentID] = stored
	return nil
}

func (r *OrderRepository) ListByUser(_ context.Context, uid string) ([]order.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]order.Record, 0, len(r.orders[uid]))
	for _, rec := range r.orders[uid] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].PaymentIntentID < out[j].PaymentIntentID
	})
	return out, nil
}
