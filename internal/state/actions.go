package state

// Action is a state mutation request. The concrete types below are the
// complete action set; Reduce rejects anything else.
type Action interface {
	isAction()
}

// SetInitialData replaces every server mirror at once, after the
// initial fetch.
type SetInitialData struct {
	Menu         []MenuItem
	MenuSeq      uint64
	Orders       []OrderView
	Tables       []TableView
	Reservations []ReservationView
}

// SetMenu replaces the menu mirror with a pushed snapshot. Seq is the
// snapshot's broadcast sequence number; snapshots at or below the last
// applied seq are stale and silently discarded.
type SetMenu struct {
	Seq  uint64
	Menu []MenuItem
}

// AddToCart adds a product to the cart. LineID is assigned by the
// store; selections must satisfy the product's obligatorio groups.
type AddToCart struct {
	LineID         string
	ProductID      string
	Customizations map[string]any
	Quantity       int32
}

// RemoveFromCart drops one cart line.
type RemoveFromCart struct {
	LineID string
}

// UpdateCartItem changes a line's quantity. A quantity below 1 removes
// the line.
type UpdateCartItem struct {
	LineID   string
	Quantity int32
}

// ClearCart empties the cart and drops the active promo.
type ClearCart struct{}

// AddOrder records a placed order; a Mesa order marks its table
// ocupada in the local mirror.
type AddOrder struct {
	Order OrderView
}

// UpdateOrderStatus applies a pushed order status change.
type UpdateOrderStatus struct {
	OrderID string
	Status  string
}

// UpdateItemStatus applies a pushed item status change. Item status
// never regresses: a PENDIENTE update on a LISTO item is ignored.
type UpdateItemStatus struct {
	OrderID string
	ItemID  string
	Status  string
}

// AddReservation records a placed reservation.
type AddReservation struct {
	Reservation ReservationView
}

// ToggleItemAvailability flips a menu item's availability locally.
type ToggleItemAvailability struct {
	ProductID string
}

// UpdateTableStatus applies a pushed table status change.
type UpdateTableStatus struct {
	Code   string
	Status string
}

// ApplyPromo activates a promo code's discount. An unknown code is an
// error and leaves the state unchanged; a second valid code replaces
// the first.
type ApplyPromo struct {
	Code string
}

// ClearPromo drops the active discount.
type ClearPromo struct{}

// SaveAddress prepends a delivery address to the bounded address book.
type SaveAddress struct {
	Address string
}

func (SetInitialData) isAction()         {}
func (SetMenu) isAction()                {}
func (AddToCart) isAction()              {}
func (RemoveFromCart) isAction()         {}
func (UpdateCartItem) isAction()         {}
func (ClearCart) isAction()              {}
func (AddOrder) isAction()               {}
func (UpdateOrderStatus) isAction()      {}
func (UpdateItemStatus) isAction()       {}
func (AddReservation) isAction()         {}
func (ToggleItemAvailability) isAction() {}
func (UpdateTableStatus) isAction()      {}
func (ApplyPromo) isAction()             {}
func (ClearPromo) isAction()             {}
func (SaveAddress) isAction()            {}
