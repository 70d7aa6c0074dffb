package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

type mockRepo struct {
	created []*Record
	err     error
}

func (m *mockRepo) Create(_ context.Context, rec *Record) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, rec)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, _ string) ([]Record, error) {
	out := make([]Record, 0, len(m.created))
	for _, r := range m.created {
		out = append(out, *r)
	}
	return out, m.err
}

func TestPlace(t *testing.T) {
	created := time.Unix(1700000000, 0)
	settled := &payment.Intent{ID: "pi_1", Amount: 500, Created: created, Status: payment.StatusSucceeded}
	items := []basket.Item{{ID: "a", Title: "A"}}

	t.Run("writes intent amount and time", func(t *testing.T) {
		repo := &mockRepo{}
		rec, err := NewService(repo).Place(context.Background(), "u1", settled, items)
		require.NoError(t, err)
		require.Len(t, repo.created, 1)
		assert.Equal(t, "pi_1", rec.PaymentIntentID)
		assert.Equal(t, int64(500), rec.Amount)
		assert.Equal(t, created, rec.Created)
		assert.Equal(t, items, rec.Basket)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := NewService(&mockRepo{}).Place(context.Background(), "", settled, items)
		require.ErrorIs(t, err, ErrMissingUser)
	})

	t.Run("unconfirmed intent is never written", func(t *testing.T) {
		repo := &mockRepo{}
		pending := &payment.Intent{ID: "pi_2", Status: payment.StatusRequiresAction}
		_, err := NewService(repo).Place(context.Background(), "u1", pending, items)
		require.ErrorIs(t, err, ErrIntentNotSettled)
		assert.Empty(t, repo.created)
	})

	t.Run("repository error is wrapped", func(t *testing.T) {
		repo := &mockRepo{err: ErrAlreadyExists}
		_, err := NewService(repo).Place(context.Background(), "u1", settled, items)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestList(t *testing.T) {
	repo := &mockRepo{err: errors.New("boom")}
	_, err := NewService(repo).List(context.Background(), "u1")
	require.Error(t, err)

	_, err = NewService(&mockRepo{}).List(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingUser)
}
