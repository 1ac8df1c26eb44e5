package state

import (
	"errors"
	"fmt"

	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/delicias-restaurant/api/internal/pricing"
)

// maxSavedAddresses bounds the delivery address book.
const maxSavedAddresses = 5

// Errors returned by Reduce. A returned error always means the state
// came back unchanged.
var (
	ErrUnknownProduct     = errors.New("product not in menu")
	ErrProductUnavailable = errors.New("product is not available")
	ErrMissingSelection   = errors.New("required selection missing")
	ErrUnknownCartLine    = errors.New("cart line not found")
	ErrEmptyAddress       = errors.New("address is empty")
	ErrUnknownAction      = errors.New("unknown action")
)

// Reduce applies one action to a state and returns the next state. It
// is pure: no clocks, no IO, no mutation of the input. Stale menu
// snapshots are discarded without error; invalid requests return the
// input state and an error.
func Reduce(s State, action Action) (State, error) {
	switch a := action.(type) {
	case SetInitialData:
		s.Menu = a.Menu
		s.MenuSeq = a.MenuSeq
		s.Orders = a.Orders
		s.Tables = a.Tables
		s.Reservations = a.Reservations
		return s, nil

	case SetMenu:
		if a.Seq <= s.MenuSeq {
			return s, nil
		}
		s.Menu = a.Menu
		s.MenuSeq = a.Seq
		return s, nil

	case AddToCart:
		return reduceAddToCart(s, a)

	case RemoveFromCart:
		cart := make([]CartLine, 0, len(s.Cart))
		for _, l := range s.Cart {
			if l.LineID != a.LineID {
				cart = append(cart, l)
			}
		}
		s.Cart = cart
		return s, nil

	case UpdateCartItem:
		return reduceUpdateCartItem(s, a)

	case ClearCart:
		s.Cart = nil
		s.DiscountPercent = 0
		s.PromoCode = ""
		return s, nil

	case AddOrder:
		s.Orders = append([]OrderView{a.Order}, s.Orders...)
		if a.Order.OrderType == enum.OrderTypeMesa && a.Order.TableCode != "" {
			s.Tables = occupyTable(s.Tables, a.Order.TableCode, a.Order.ID)
		}
		return s, nil

	case UpdateOrderStatus:
		orders := make([]OrderView, len(s.Orders))
		for i, o := range s.Orders {
			if o.ID == a.OrderID {
				o.Status = a.Status
			}
			orders[i] = o
		}
		s.Orders = orders
		return s, nil

	case UpdateItemStatus:
		return reduceUpdateItemStatus(s, a), nil

	case AddReservation:
		s.Reservations = append(append([]ReservationView{}, s.Reservations...), a.Reservation)
		return s, nil

	case ToggleItemAvailability:
		menu := make([]MenuItem, len(s.Menu))
		for i, m := range s.Menu {
			if m.ID == a.ProductID {
				m.IsAvailable = !m.IsAvailable
			}
			menu[i] = m
		}
		s.Menu = menu
		return s, nil

	case UpdateTableStatus:
		s.Tables = setTableStatus(s.Tables, a.Code, a.Status)
		return s, nil

	case ApplyPromo:
		pct, err := pricing.Discount(a.Code)
		if err != nil {
			return s, err
		}
		s.DiscountPercent = pct
		s.PromoCode = a.Code
		return s, nil

	case ClearPromo:
		s.DiscountPercent = 0
		s.PromoCode = ""
		return s, nil

	case SaveAddress:
		return reduceSaveAddress(s, a)
	}

	return s, fmt.Errorf("%w: %T", ErrUnknownAction, action)
}

func reduceAddToCart(s State, a AddToCart) (State, error) {
	item, ok := s.findMenuItem(a.ProductID)
	if !ok {
		return s, ErrUnknownProduct
	}
	if !item.IsAvailable {
		return s, ErrProductUnavailable
	}
	if missing := item.Modifiers.MissingSelections(a.Customizations); len(missing) > 0 {
		return s, fmt.Errorf("%w: %v", ErrMissingSelection, missing)
	}

	quantity := a.Quantity
	if quantity < 1 {
		quantity = 1
	}
	line := CartLine{
		LineID:         a.LineID,
		ProductID:      item.ID,
		Name:           item.Name,
		Price:          item.Price,
		Customizations: a.Customizations,
		Quantity:       quantity,
	}
	s.Cart = append(append([]CartLine{}, s.Cart...), line)
	return s, nil
}

func reduceUpdateCartItem(s State, a UpdateCartItem) (State, error) {
	cart := make([]CartLine, 0, len(s.Cart))
	found := false
	for _, l := range s.Cart {
		if l.LineID == a.LineID {
			found = true
			if a.Quantity < 1 {
				continue // decrement below 1 removes the line
			}
			l.Quantity = a.Quantity
		}
		cart = append(cart, l)
	}
	if !found {
		return s, ErrUnknownCartLine
	}
	s.Cart = cart
	return s, nil
}

func reduceUpdateItemStatus(s State, a UpdateItemStatus) State {
	orders := make([]OrderView, len(s.Orders))
	for i, o := range s.Orders {
		if o.ID == a.OrderID {
			items := make([]OrderItemView, len(o.Items))
			for j, it := range o.Items {
				if it.ID == a.ItemID && !regresses(it.Status, a.Status) {
					it.Status = a.Status
				}
				items[j] = it
			}
			o.Items = items
		}
		orders[i] = o
	}
	s.Orders = orders
	return s
}

// regresses reports whether moving from to next would walk the item
// status backwards.
func regresses(from, next string) bool {
	return from == enum.ItemStatusListo && next == enum.ItemStatusPendiente
}

func reduceSaveAddress(s State, a SaveAddress) (State, error) {
	if a.Address == "" {
		return s, ErrEmptyAddress
	}
	book := []string{a.Address}
	for _, addr := range s.Addresses {
		if addr == a.Address {
			continue
		}
		book = append(book, addr)
	}
	if len(book) > maxSavedAddresses {
		book = book[:maxSavedAddresses]
	}
	s.Addresses = book
	return s, nil
}

func setTableStatus(tables []TableView, code, status string) []TableView {
	next := make([]TableView, len(tables))
	for i, t := range tables {
		if t.Code == code {
			t.Status = status
			if status != enum.TableStatusOcupada {
				t.CurrentOrderID = ""
			}
		}
		next[i] = t
	}
	return next
}

func occupyTable(tables []TableView, code, orderID string) []TableView {
	next := make([]TableView, len(tables))
	for i, t := range tables {
		if t.Code == code {
			t.Status = enum.TableStatusOcupada
			t.CurrentOrderID = orderID
		}
		next[i] = t
	}
	return next
}
