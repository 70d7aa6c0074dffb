// Package payment describes the payment provider's view of a charge attempt.
//
// The provider owns card capture, tokenization and the intent lifecycle; this
// package only names what the checkout reads from it.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Status is the provider-side state of a payment intent.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusCanceled              Status = "canceled"
	StatusSucceeded             Status = "succeeded"
)

var (
	// ErrInvalidAmount is returned for a non-positive intent amount.
	ErrInvalidAmount = errors.New("amount must be a positive number of minor units")
	// ErrInvalidClientSecret is returned when a client secret does not name
	// a known payment intent.
	ErrInvalidClientSecret = errors.New("invalid client secret")
	// ErrMissingPaymentMethod is returned when confirmation has no method.
	ErrMissingPaymentMethod = errors.New("payment method is required")
)

// Intent is the provider's record of a charge attempt and its outcome.
type Intent struct {
	ID           string
	Amount       int64
	Currency     string
	Created      time.Time
	Status       Status
	ClientSecret string
}

// Confirmed reports whether the provider considers the charge successful.
func (i *Intent) Confirmed() bool {
	return i != nil && i.Status == StatusSucceeded
}

// Method references a payment method captured by the provider's card
// element, e.g. "pm_card_visa".
type Method struct {
	ID string
}

// CardError is a card failure reported by the provider. Message is meant to
// be shown to the shopper as is.
type CardError struct {
	Code    string
	Message string
}

func (e *CardError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Provider is the external payment platform.
type Provider interface {
	// CreateIntent opens a payment intent for amount minor units and returns
	// it with its client secret.
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
	// ConfirmCardPayment confirms the intent authorized by clientSecret with
	// the given card payment method.
	ConfirmCardPayment(ctx context.Context, clientSecret string, method Method) (*Intent, error)
}
