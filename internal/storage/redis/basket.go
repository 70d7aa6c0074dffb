// Package redis stores baskets in Redis so every replica sees the same
// basket reference.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
)

var _ basket.Store = (*BasketStore)(nil)

// ErrConflict is returned when a basket kept changing under concurrent
// writers for every retry.
var ErrConflict = errors.New("basket update conflict")

const maxRetries = 10

// Options configures BasketStore.
type Options struct {
	// Prefix namespaces basket keys: "<prefix>:<uid>".
	Prefix string
	// TTL expires idle baskets. Zero keeps them forever.
	TTL time.Duration
}

// BasketStore is a basket.Store over a Redis string key per shopper holding
// the JSON-encoded basket. Writes use optimistic locking (WATCH/MULTI).
type BasketStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewBasketStore creates a BasketStore.
func NewBasketStore(client redis.UniversalClient, opts Options) *BasketStore {
	if opts.Prefix == "" {
		opts.Prefix = "basket"
	}
	return &BasketStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func (s *BasketStore) key(uid string) string {
	return s.prefix + ":" + uid
}

func (s *BasketStore) Get(ctx context.Context, uid string) (basket.Basket, error) {
	return load(ctx, s.client, s.key(uid))
}

func (s *BasketStore) Dispatch(ctx context.Context, uid string, action basket.Action) (basket.Basket, error) {
	key := s.key(uid)
	var next basket.Basket

	txf := func(tx *redis.Tx) error {
		current, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		next, err = basket.Reduce(current, action)
		if err != nil {
			return err
		}
		if next.Version == current.Version {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return errors.Wrap(err, "marshal basket")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for range maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return basket.Basket{}, errors.Wrap(err, "dispatch")
		}
		return next, nil
	}
	return basket.Basket{}, ErrConflict
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (basket.Basket, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return basket.Basket{Items: []basket.Item{}}, nil
	}
	if err != nil {
		return basket.Basket{}, errors.Wrap(err, "redis get")
	}
	var b basket.Basket
	if err := json.Unmarshal(data, &b); err != nil {
		return basket.Basket{}, errors.Wrap(err, "unmarshal basket")
	}
	return b, nil
}
