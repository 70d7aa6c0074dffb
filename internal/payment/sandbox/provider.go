// Package sandbox is an in-memory payment.Provider that understands the
// provider's test payment method tokens. It backs local runs and tests.
package sandbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// Test payment methods with a fixed outcome.
const (
	MethodVisa                   = "pm_card_visa"
	MethodChargeDeclined         = "pm_card_chargeDeclined"
	MethodInsufficientFunds      = "pm_card_chargeDeclinedInsufficientFunds"
	MethodAuthenticationRequired = "pm_card_authenticationRequired"
)

// Provider keeps intents in memory. Unknown methods starting with "pm_"
// succeed.
type Provider struct {
	now func() time.Time

	mu      sync.Mutex
	intents map[string]*payment.Intent
}

// New creates an empty sandbox provider.
func New() *Provider {
	return &Provider{
		now:     time.Now,
		intents: make(map[string]*payment.Intent),
	}
}

func (p *Provider) CreateIntent(_ context.Context, amount int64, currency string) (*payment.Intent, error) {
	if amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}

	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := &payment.Intent{
		ID:           id,
		Amount:       amount,
		Currency:     currency,
		Created:      p.now().UTC().Truncate(time.Second),
		Status:       payment.StatusRequiresPaymentMethod,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
	}

	p.mu.Lock()
	p.intents[id] = intent
	p.mu.Unlock()

	out := *intent
	return &out, nil
}

func (p *Provider) ConfirmCardPayment(_ context.Context, clientSecret string, method payment.Method) (*payment.Intent, error) {
	if method.ID == "" {
		return nil, payment.ErrMissingPaymentMethod
	}
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok {
		return nil, payment.ErrInvalidClientSecret
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok || intent.ClientSecret != clientSecret {
		return nil, payment.ErrInvalidClientSecret
	}
	if intent.Status == payment.StatusSucceeded {
		out := *intent
		return &out, nil
	}

	switch {
	case method.ID == MethodChargeDeclined:
		return nil, &payment.CardError{Code: "card_declined", Message: "Your card was declined."}
	case method.ID == MethodInsufficientFunds:
		return nil, &payment.CardError{Code: "card_declined", Message: "Your card has insufficient funds."}
	case method.ID == MethodAuthenticationRequired:
		intent.Status = payment.StatusRequiresAction
	case strings.HasPrefix(method.ID, "pm_"):
		intent.Status = payment.StatusSucceeded
	default:
		return nil, &payment.CardError{Code: "resource_missing", Message: "No such PaymentMethod: '" + method.ID + "'"}
	}

	out := *intent
	return &out, nil
}

// Intent returns a copy of the stored intent.
func (p *Provider) Intent(id string) (payment.Intent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return payment.Intent{}, false
	}
	return *intent, true
}
