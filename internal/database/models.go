package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a registered account; staff roles drive the transition guard.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Phone        pgtype.Text
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Product is a sellable menu item. Modifiers holds the raw JSONB
// modifier document (obligatorios/opcionales); parsing is defensive and
// lives in the pricing package.
type Product struct {
	ID              uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Category        string
	Image           pgtype.Text
	IsAvailable     bool
	PreparationTime int32
	Modifiers       []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Order carries no stored total: totals are always re-derived from the
// items so they can never drift.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	OrderType       string
	TableCode       pgtype.Text
	CustomerName    pgtype.Text
	CustomerPhone   pgtype.Text
	DeliveryAddress pgtype.Text
	PaymentMethod   pgtype.Text
	Instructions    pgtype.Text
	Status          string
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a frozen snapshot of a cart line at order-creation time.
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Name           string
	UnitPrice      pgtype.Numeric
	Customizations []byte
	Quantity       int32
	Status         string
}

// Payment records a (simulated) settlement against an order.
type Payment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Method         string
	Amount         pgtype.Numeric
	AmountReceived pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	ProcessedBy    uuid.UUID
	ProcessedAt    time.Time
}

// Table is a fixed registry entry for a physical table.
type Table struct {
	Code           string
	Capacity       int32
	Status         string
	CurrentOrderID pgtype.UUID
}

// Reservation has a lifecycle independent of orders.
type Reservation struct {
	ID          uuid.UUID
	Name        string
	Phone       string
	ReservedFor time.Time
	Guests      int32
	Status      string
	CreatedAt   time.Time
}
