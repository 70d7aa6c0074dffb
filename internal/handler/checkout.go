package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// GetCheckout renders the checkout view, refreshing the client secret when
// the basket changed.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.checkout.View(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeView(&e, view)
	writeJSON(w, http.StatusOK, &e)
}

// CardChange applies a card element change event and returns the form.
func (h *Handler) CardChange(w http.ResponseWriter, r *http.Request) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := decodeCardEvent(d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	form := h.checkout.CardChange(r.Context(), u, ev)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("form")
	encodeForm(&e, form)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// Submit confirms the payment and writes the order. Failures carry the form
// so the page can show the same message the form holds.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	method, err := decodePaymentMethod(d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.checkout.Submit(r.Context(), u, payment.Method{ID: method})
	if err != nil {
		status, msg := mapCheckoutError(err)
		if status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.FieldStart("form")
		encodeForm(&e, h.checkout.Form(u))
		e.ObjEnd()
		writeJSON(w, status, &e)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("form")
	encodeForm(&e, out.Form)
	e.FieldStart("redirect")
	e.Str(out.Redirect)
	if out.Order != nil {
		e.FieldStart("order")
		encodeOrder(&e, *out.Order)
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
