package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownPromo is returned when a promo code is not in the table.
var ErrUnknownPromo = errors.New("invalid promo code")

// promos maps promo code to percentage discount. Codes are matched
// case-insensitively.
var promos = map[string]int64{
	"DELICIAS10":   10,
	"BIENVENIDO15": 15,
	"PERUANO20":    20,
}

// Discount resolves a promo code to its percentage discount.
func Discount(code string) (int64, error) {
	pct, ok := promos[strings.ToUpper(code)]
	if !ok {
		return 0, ErrUnknownPromo
	}
	return pct, nil
}

// ApplyDiscount returns subtotal * (1 - percent/100).
func ApplyDiscount(subtotal decimal.Decimal, percent int64) decimal.Decimal {
	factor := decimal.NewFromInt(100 - percent).Div(decimal.NewFromInt(100))
	return subtotal.Mul(factor)
}
