package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v76"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

type mockIntents struct {
	created   *stripego.PaymentIntentParams
	confirmed *stripego.PaymentIntentConfirmParams
	current   *stripego.PaymentIntent
	result    *stripego.PaymentIntent
	err       error
}

func (m *mockIntents) New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error) {
	m.created = params
	return m.result, m.err
}

func (m *mockIntents) Get(string, *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error) {
	return m.current, nil
}

func (m *mockIntents) Confirm(_ string, params *stripego.PaymentIntentConfirmParams) (*stripego.PaymentIntent, error) {
	m.confirmed = params
	return m.result, m.err
}

func TestIntentID(t *testing.T) {
	tests := []struct {
		secret  string
		want    string
		wantErr bool
	}{
		{secret: "pi_3Nabc_secret_xyz", want: "pi_3Nabc"},
		{secret: "pi_3Nabc", wantErr: true},
		{secret: "seti_1_secret_x", wantErr: true},
		{secret: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.secret, func(t *testing.T) {
			got, err := IntentID(tt.secret)
			if tt.wantErr {
				require.ErrorIs(t, err, payment.ErrInvalidClientSecret)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateIntent(t *testing.T) {
	m := &mockIntents{result: &stripego.PaymentIntent{
		ID:           "pi_1",
		Amount:       1999,
		Currency:     "usd",
		Created:      1700000000,
		Status:       stripego.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: "pi_1_secret_a",
	}}
	p := &Provider{intents: m}

	intent, err := p.CreateIntent(context.Background(), 1999, "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(1999), *m.created.Amount)
	assert.Equal(t, "usd", *m.created.Currency)
	assert.Equal(t, "pi_1_secret_a", intent.ClientSecret)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), intent.Created)

	_, err = p.CreateIntent(context.Background(), 0, "usd")
	require.ErrorIs(t, err, payment.ErrInvalidAmount)
}

func TestConfirmCardPayment(t *testing.T) {
	ctx := context.Background()
	pending := &stripego.PaymentIntent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret_a",
		Status:       stripego.PaymentIntentStatusRequiresPaymentMethod,
	}

	t.Run("succeeded", func(t *testing.T) {
		m := &mockIntents{current: pending, result: &stripego.PaymentIntent{
			ID:     "pi_1",
			Amount: 500,
			Status: stripego.PaymentIntentStatusSucceeded,
		}}
		intent, err := (&Provider{intents: m}).ConfirmCardPayment(ctx, "pi_1_secret_a", payment.Method{ID: "pm_card_visa"})
		require.NoError(t, err)
		assert.True(t, intent.Confirmed())
		assert.Equal(t, "pm_card_visa", *m.confirmed.PaymentMethod)
	})

	t.Run("card declined", func(t *testing.T) {
		m := &mockIntents{current: pending, err: &stripego.Error{
			Type: stripego.ErrorTypeCard,
			Code: stripego.ErrorCodeCardDeclined,
			Msg:  "Your card was declined.",
		}}
		_, err := (&Provider{intents: m}).ConfirmCardPayment(ctx, "pi_1_secret_a", payment.Method{ID: "pm_card_chargeDeclined"})

		var cardErr *payment.CardError
		require.ErrorAs(t, err, &cardErr)
		assert.Equal(t, "Your card was declined.", cardErr.Message)
		assert.Equal(t, "card_declined", cardErr.Code)
	})

	t.Run("api failure", func(t *testing.T) {
		m := &mockIntents{current: pending, err: errors.New("tls handshake timeout")}
		_, err := (&Provider{intents: m}).ConfirmCardPayment(ctx, "pi_1_secret_a", payment.Method{ID: "pm_card_visa"})
		require.Error(t, err)
		var cardErr *payment.CardError
		assert.False(t, errors.As(err, &cardErr))
	})

	t.Run("secret mismatch", func(t *testing.T) {
		m := &mockIntents{current: pending}
		_, err := (&Provider{intents: m}).ConfirmCardPayment(ctx, "pi_1_secret_forged", payment.Method{ID: "pm_card_visa"})
		require.ErrorIs(t, err, payment.ErrInvalidClientSecret)
		assert.Nil(t, m.confirmed)
	})

	t.Run("already succeeded is not confirmed again", func(t *testing.T) {
		done := *pending
		done.Status = stripego.PaymentIntentStatusSucceeded
		m := &mockIntents{current: &done}
		intent, err := (&Provider{intents: m}).ConfirmCardPayment(ctx, "pi_1_secret_a", payment.Method{ID: "pm_card_visa"})
		require.NoError(t, err)
		assert.True(t, intent.Confirmed())
		assert.Nil(t, m.confirmed)
	})
}
