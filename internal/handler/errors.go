package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/user"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

// mapCheckoutError converts domain errors to an HTTP status and the message
// shown to the shopper.
func mapCheckoutError(err error) (int, string) {
	var payErr *checkout.PaymentError
	if errors.As(err, &payErr) {
		return http.StatusPaymentRequired, payErr.Message
	}

	var writeErr *checkout.OrderWriteError
	if errors.As(err, &writeErr) {
		return http.StatusBadGateway, "payment succeeded but the order could not be saved"
	}

	switch {
	case errors.Is(err, user.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errMalformed),
		errors.Is(err, basket.ErrUnknownAction),
		errors.Is(err, payment.ErrMissingPaymentMethod),
		errors.Is(err, payment.ErrInvalidClientSecret),
		errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, checkout.ErrAlreadyProcessing),
		errors.Is(err, checkout.ErrBasketChanged):
		return http.StatusConflict, err.Error()
	case errors.Is(err, checkout.ErrEmptyBasket),
		errors.Is(err, checkout.ErrNoClientSecret),
		errors.Is(err, checkout.ErrSubmitDisabled):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError maps err and writes it. Unexpected errors are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapCheckoutError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	httpmiddleware.WriteError(w, status, msg)
}
