// Package stripe implements payment.Provider on top of the Stripe API.
package stripe

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// intents is the subset of the Stripe payment intent client used here.
type intents interface {
	New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
	Get(id string, params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
	Confirm(id string, params *stripego.PaymentIntentConfirmParams) (*stripego.PaymentIntent, error)
}

// Provider confirms card payments with Stripe.
type Provider struct {
	intents intents
}

// New creates a Provider authenticated with the secret key.
func New(secretKey string) (*Provider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := client.New(secretKey, nil)
	return &Provider{intents: api.PaymentIntents}, nil
}

// CreateIntent opens a card payment intent for amount minor units.
func (p *Provider) CreateIntent(ctx context.Context, amount int64, currency string) (*payment.Intent, error) {
	if amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}

	params := &stripego.PaymentIntentParams{
		Amount:             stripego.Int64(amount),
		Currency:           stripego.String(currency),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := p.intents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	zctx.From(ctx).Debug("Payment intent created",
		zap.String("payment_intent", pi.ID),
		zap.Int64("amount", pi.Amount),
	)
	return toIntent(pi), nil
}

// ConfirmCardPayment confirms the intent named by clientSecret with method.
// Card failures are returned as *payment.CardError carrying Stripe's message.
func (p *Provider) ConfirmCardPayment(ctx context.Context, clientSecret string, method payment.Method) (*payment.Intent, error) {
	if method.ID == "" {
		return nil, payment.ErrMissingPaymentMethod
	}
	id, err := IntentID(clientSecret)
	if err != nil {
		return nil, err
	}

	get := &stripego.PaymentIntentParams{}
	get.Context = ctx
	current, err := p.intents.Get(id, get)
	if err != nil {
		return nil, mapError(err, "get payment intent")
	}
	if current.ClientSecret != clientSecret {
		return nil, payment.ErrInvalidClientSecret
	}
	if current.Status == stripego.PaymentIntentStatusSucceeded {
		return toIntent(current), nil
	}

	params := &stripego.PaymentIntentConfirmParams{
		PaymentMethod: stripego.String(method.ID),
	}
	params.Context = ctx

	pi, err := p.intents.Confirm(id, params)
	if err != nil {
		return nil, mapError(err, "confirm payment intent")
	}

	zctx.From(ctx).Info("Payment intent confirmed",
		zap.String("payment_intent", pi.ID),
		zap.String("status", string(pi.Status)),
	)
	return toIntent(pi), nil
}

// IntentID extracts the payment intent id from a client secret of the form
// "pi_xxx_secret_yyy".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", payment.ErrInvalidClientSecret
	}
	return id, nil
}

func mapError(err error, op string) error {
	var se *stripego.Error
	if errors.As(err, &se) && se.Type == stripego.ErrorTypeCard {
		return &payment.CardError{Code: string(se.Code), Message: se.Msg}
	}
	return errors.Wrap(err, op)
}

func toIntent(pi *stripego.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Created:      time.Unix(pi.Created, 0).UTC(),
		Status:       payment.Status(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
}
