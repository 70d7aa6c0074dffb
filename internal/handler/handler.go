// Package handler exposes the checkout over HTTP.
package handler

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/payments"
)

// Handler serves the checkout API, the payments backend and the checkout
// page, delegating to the domain services.
type Handler struct {
	checkout *checkout.Service
	baskets  basket.Store
	orders   *order.Service
	payments *payments.Service
	security *SecurityHandler
	page     *template.Template
}

// NewHandler constructs a Handler with the required domain dependencies.
// payments may be nil when the payments backend runs elsewhere.
func NewHandler(
	checkoutService *checkout.Service,
	baskets basket.Store,
	orderService *order.Service,
	paymentService *payments.Service,
	security *SecurityHandler,
) *Handler {
	return &Handler{
		checkout: checkoutService,
		baskets:  baskets,
		orders:   orderService,
		payments: paymentService,
		security: security,
		page:     checkoutPage,
	}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	if h.payments != nil {
		r.Post("/payments/create", h.CreatePayment)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.security.RequireUser)

		r.Get("/checkout", h.CheckoutPage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/checkout", h.GetCheckout)
			r.Post("/checkout/card", h.CardChange)
			r.Post("/checkout/submit", h.Submit)

			r.Get("/basket", h.GetBasket)
			r.Post("/basket/items", h.AddItem)
			r.Delete("/basket/items/{id}", h.RemoveItem)

			r.Get("/orders", h.ListOrders)
		})
	})
}

// Router returns a chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}
