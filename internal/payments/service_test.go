package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/payment/sandbox"
)

type failingProvider struct{ payment.Provider }

func (failingProvider) CreateIntent(context.Context, int64, string) (*payment.Intent, error) {
	return nil, errors.New("api unavailable")
}

func TestCreateClientSecret(t *testing.T) {
	ctx := context.Background()
	provider := sandbox.New()
	svc := NewService(provider, "USD")
	assert.Equal(t, "usd", svc.Currency())

	secret, err := svc.CreateClientSecret(ctx, 1999)
	require.NoError(t, err)
	assert.Contains(t, secret, "_secret_")

	id, _, _ := strings.Cut(secret, "_secret_")
	intent, ok := provider.Intent(id)
	require.True(t, ok)
	assert.Equal(t, int64(1999), intent.Amount)
	assert.Equal(t, "usd", intent.Currency)
}

func TestCreateClientSecret_Errors(t *testing.T) {
	ctx := context.Background()

	for _, total := range []int64{0, -5} {
		_, err := NewService(sandbox.New(), "usd").CreateClientSecret(ctx, total)
		require.ErrorIs(t, err, payment.ErrInvalidAmount)
	}

	_, err := NewService(failingProvider{}, "usd").CreateClientSecret(ctx, 100)
	require.ErrorContains(t, err, "api unavailable")
}
