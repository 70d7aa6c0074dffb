// Package payments is the backend half of the client-secret handshake: it
// opens a payment intent for a basket total and hands back its secret.
package payments

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// Service creates payment intents in a fixed currency.
type Service struct {
	provider payment.Provider
	currency string
}

// NewService creates a Service charging in currency (ISO 4217, lower case).
func NewService(provider payment.Provider, currency string) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{provider: provider, currency: strings.ToLower(currency)}
}

// CreateClientSecret opens an intent for total minor units and returns its
// client secret.
func (s *Service) CreateClientSecret(ctx context.Context, total int64) (string, error) {
	if total <= 0 {
		return "", payment.ErrInvalidAmount
	}

	intent, err := s.provider.CreateIntent(ctx, total, s.currency)
	if err != nil {
		return "", errors.Wrap(err, "create intent")
	}
	if intent.ClientSecret == "" {
		return "", errors.Errorf("intent %s has no client secret", intent.ID)
	}

	zctx.From(ctx).Info("Payment intent opened",
		zap.String("payment_intent", intent.ID),
		zap.Int64("total", total),
		zap.String("currency", s.currency),
	)
	return intent.ClientSecret, nil
}

// Currency returns the charge currency.
func (s *Service) Currency() string { return s.currency }
