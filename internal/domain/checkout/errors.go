package checkout

import (
	"github.com/go-faster/errors"
)

// Sentinel errors returned by Submit.
var (
	ErrEmptyBasket       = errors.New("basket is empty")
	ErrNoClientSecret    = errors.New("payment is not ready yet")
	ErrBasketChanged     = errors.New("basket changed since the payment was prepared")
	ErrSubmitDisabled    = errors.New("card details are incomplete")
	ErrAlreadyProcessing = errors.New("payment is already being processed")
	ErrNotConfirmed      = errors.New("payment was not confirmed")
)

// Messages shown to the shopper when no provider text is available.
const (
	msgSecretUnavailable = "Payment is temporarily unavailable. Please try again."
	msgPaymentFailed     = "Your payment could not be processed. Please try again."
	msgNotConfirmed      = "Your payment was not completed. Please try another card."
	msgOrderNotSaved     = "Your payment went through but we could not save your order. Please try again."
)

// PaymentError is returned by Submit when the provider did not confirm the
// payment. Message is what the form shows.
type PaymentError struct {
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	return "confirm payment: " + e.Err.Error()
}

func (e *PaymentError) Unwrap() error { return e.Err }

// OrderWriteError is returned by Submit when the payment was confirmed but
// the order record could not be written. The basket is left untouched.
type OrderWriteError struct {
	PaymentIntentID string
	Err             error
}

func (e *OrderWriteError) Error() string {
	return "write order for payment " + e.PaymentIntentID + ": " + e.Err.Error()
}

func (e *OrderWriteError) Unwrap() error { return e.Err }
