package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListOrders returns the shopper's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := h.orders.List(r.Context(), u.UID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for _, rec := range records {
		encodeOrder(&e, rec)
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
