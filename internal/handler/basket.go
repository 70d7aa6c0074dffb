package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
)

func (h *Handler) encodeBasket(e *jx.Encoder, b basket.Basket) {
	total := basket.Total(b)
	e.ObjStart()
	e.FieldStart("items")
	encodeItems(e, b.Items)
	e.FieldStart("version")
	e.UInt64(b.Version)
	e.FieldStart("total")
	encodeDecimal(e, total)
	e.FieldStart("totalText")
	e.Str(h.checkout.FormatAmount(total))
	e.ObjEnd()
}

// GetBasket returns the shopper's basket.
func (h *Handler) GetBasket(w http.ResponseWriter, r *http.Request) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.baskets.Get(r.Context(), u.UID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeBasket(&e, b)
	writeJSON(w, http.StatusOK, &e)
}

// AddItem dispatches ADD_TO_BASKET.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := decodeItem(d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.dispatch(w, r, basket.AddToBasket(item), http.StatusCreated)
}

// RemoveItem dispatches REMOVE_FROM_BASKET for the first item with the id.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, basket.RemoveFromBasket(chi.URLParam(r, "id")), http.StatusOK)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, action basket.Action, status int) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.baskets.Dispatch(r.Context(), u.UID, action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeBasket(&e, b)
	writeJSON(w, status, &e)
}
