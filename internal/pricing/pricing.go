// Package pricing computes line and order totals from base prices,
// customization selections and quantities, and resolves promo codes.
//
// Customization data arrives from clients and from JSONB columns, so the
// engine is deliberately tolerant: selections it cannot interpret are
// priced at zero instead of failing the whole total.
package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Line is the pricing-relevant view of a cart line or order item.
type Line struct {
	Price          decimal.Decimal
	Customizations map[string]any
	Quantity       int32
}

// CustomizationsTotal sums the price deltas of a customization map.
// Obligatorio selections are stored as {option, price} objects and only
// their price is summed; opcional selections are bare numeric deltas.
// Anything else counts as zero.
func CustomizationsTotal(customizations map[string]any) decimal.Decimal {
	total := decimal.Zero
	for _, v := range customizations {
		total = total.Add(deltaOf(v))
	}
	return total
}

func deltaOf(v any) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
	case map[string]any:
		if price, ok := val["price"]; ok {
			switch p := price.(type) {
			case float64:
				return decimal.NewFromFloat(p)
			case int:
				return decimal.NewFromInt(int64(p))
			case json.Number:
				if d, err := decimal.NewFromString(p.String()); err == nil {
					return d
				}
			}
		}
	}
	return decimal.Zero
}

// LineTotal computes (base price + customization deltas) * quantity.
// A quantity below 1 is treated as 1.
func LineTotal(base decimal.Decimal, customizations map[string]any, quantity int32) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	unit := base.Add(CustomizationsTotal(customizations))
	return unit.Mul(decimal.NewFromInt32(quantity))
}

// Total sums LineTotal over all lines. It is recomputed fresh on every
// call; totals are never cached anywhere.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l.Price, l.Customizations, l.Quantity))
	}
	return total
}
