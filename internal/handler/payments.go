package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

// CreatePayment is the payments backend: POST /payments/create?total=N
// opens an intent for N minor units and answers 201 {"clientSecret": ...}.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	total, err := strconv.ParseInt(r.URL.Query().Get("total"), 10, 64)
	if err != nil || total <= 0 {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "total must be a positive integer")
		return
	}

	secret, err := h.payments.CreateClientSecret(r.Context(), total)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("clientSecret")
	e.Str(secret)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}
