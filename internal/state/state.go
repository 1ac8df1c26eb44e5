// Package state is an embeddable session state model for ordering
// clients. It mirrors the server's menu, orders and tables, owns the
// local cart and address book, and applies changes through a pure
// reducer so every mutation is testable in isolation.
package state

import (
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// MenuItem is the client-side mirror of a catalog product.
type MenuItem struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       decimal.Decimal   `json:"price"`
	Category    string            `json:"category"`
	Image       string            `json:"image"`
	IsAvailable bool              `json:"is_available"`
	Modifiers   pricing.Modifiers `json:"modifiers"`
}

// CartLine is one entry in the local cart. Pricing fields are copied
// from the menu item at add time so a later menu update cannot reprice
// a line already in the cart.
type CartLine struct {
	LineID         string          `json:"line_id"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Customizations map[string]any  `json:"customizations"`
	Quantity       int32           `json:"quantity"`
}

// OrderItemView mirrors one item of a placed order.
type OrderItemView struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Customizations map[string]any  `json:"customizations"`
	Quantity       int32           `json:"quantity"`
	Status         string          `json:"status"`
}

// OrderView mirrors a placed order.
type OrderView struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	OrderType   string          `json:"order_type"`
	TableCode   string          `json:"table_code,omitempty"`
	Status      string          `json:"status"`
	Items       []OrderItemView `json:"items"`
}

// TableView mirrors a table registry entry. CurrentOrderID is the
// order occupying the table, empty while the table is not ocupada.
type TableView struct {
	Code           string `json:"code"`
	Capacity       int32  `json:"capacity"`
	Status         string `json:"status"`
	CurrentOrderID string `json:"current_order_id,omitempty"`
}

// ReservationView mirrors a reservation.
type ReservationView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Date   string `json:"date"`
	Guests int32  `json:"guests"`
	Status string `json:"status"`
}

// State is the full session snapshot. Values are treated as immutable:
// the reducer returns a fresh State and never mutates slices in place,
// so subscribers may hold on to snapshots safely.
type State struct {
	Menu         []MenuItem
	MenuSeq      uint64
	Cart         []CartLine
	Orders       []OrderView
	Tables       []TableView
	Reservations []ReservationView

	// DiscountPercent is the active promo discount; zero when none.
	DiscountPercent int64
	PromoCode       string

	// Addresses is the bounded delivery address book, newest first.
	Addresses []string
}

// CartSubtotal derives the cart total before any promo discount.
func (s State) CartSubtotal() decimal.Decimal {
	lines := make([]pricing.Line, 0, len(s.Cart))
	for _, l := range s.Cart {
		lines = append(lines, pricing.Line{
			Price:          l.Price,
			Customizations: l.Customizations,
			Quantity:       l.Quantity,
		})
	}
	return pricing.Total(lines)
}

// CartTotal derives the payable cart total with the active discount
// applied. Totals are never stored on the state.
func (s State) CartTotal() decimal.Decimal {
	return pricing.ApplyDiscount(s.CartSubtotal(), s.DiscountPercent)
}

func (s State) findMenuItem(productID string) (MenuItem, bool) {
	for _, m := range s.Menu {
		if m.ID == productID {
			return m, true
		}
	}
	return MenuItem{}, false
}
