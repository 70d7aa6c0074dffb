package checkout

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
)

// View is everything the checkout page renders.
type View struct {
	ItemCount int
	// Email is shown as the delivery address.
	Email     string
	Items     []basket.Item
	Total     decimal.Decimal
	TotalText string
	Form      Form
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders a major-unit amount with two decimals and thousands
// separators, prefixed with symbol: "$1,234.50".
func FormatAmount(symbol string, amount decimal.Decimal) string {
	return symbol + printer.Sprint(number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}
