package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

//go:embed templates/*.html
var templates embed.FS

var checkoutPage = template.Must(template.New("checkout.html").
	Funcs(template.FuncMap{"stars": stars}).
	ParseFS(templates, "templates/checkout.html"))

// stars renders a 0 to 5 rating.
func stars(rating int) string {
	return strings.Repeat("\u2605", min(max(rating, 0), 5))
}

// pageData is what the checkout template renders.
type pageData struct {
	View   *checkout.View
	Format func(decimal.Decimal) string
	// Methods are the test payment methods offered in place of a card field.
	Methods []string
}

var testMethods = []string{
	"pm_card_visa",
	"pm_card_chargeDeclined",
	"pm_card_chargeDeclinedInsufficientFunds",
	"pm_card_authenticationRequired",
}

// CheckoutPage renders the checkout page as HTML.
func (h *Handler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
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

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, pageData{View: view, Format: h.checkout.FormatAmount, Methods: testMethods}); err != nil {
		zctx.From(r.Context()).Error("Render checkout page", zap.Error(err))
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
