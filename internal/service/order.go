package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrMissingSelection     = errors.New("required selection missing")
	ErrTableRequired        = errors.New("table_code is required for Mesa orders")
	ErrTableUnavailable     = errors.New("table is not free")
	ErrDeliveryAddress      = errors.New("delivery_address is required for Delivery orders")
	ErrPaymentMethod        = errors.New("invalid payment_method")
	ErrCustomerNameRequired = errors.New("customer_name is required")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CreatedBy       uuid.UUID
	OrderType       string
	TableCode       string
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	PaymentMethod   string
	Instructions    string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order. Customizations
// carry the selections exactly as the client sent them; they are frozen
// into the order item untouched.
type CreateOrderItemRequest struct {
	ProductID      string
	Quantity       int32
	Customizations map[string]any
}

// CreateOrderResult is the full created order with items and the total
// derived from them.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
	Total decimal.Decimal
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates, freezes item snapshots, and creates an order
// atomically. For Mesa orders the table flip to ocupada happens in the
// same transaction, so the order and its table linkage commit or fail
// together. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations (race where concurrent transactions read
// the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func validateOrderRequest(req CreateOrderRequest) error {
	switch req.OrderType {
	case enum.OrderTypeMesa:
		if req.TableCode == "" {
			return ErrTableRequired
		}
	case enum.OrderTypeDelivery:
		if req.DeliveryAddress == "" {
			return ErrDeliveryAddress
		}
		if !isValidPaymentMethod(req.PaymentMethod) {
			return ErrPaymentMethod
		}
	case enum.OrderTypeRecoger:
		if req.CustomerName == "" {
			return ErrCustomerNameRequired
		}
	default:
		return ErrInvalidOrderType
	}

	if req.PaymentMethod != "" && !isValidPaymentMethod(req.PaymentMethod) {
		return ErrPaymentMethod
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	return nil
}

// isOrderNumberConflict checks if the error is a unique constraint
// violation on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("DEL-%03d", nextNum)

	// --- Validate items against the live catalog ---
	type frozenItem struct {
		params database.CreateOrderItemParams
	}
	var items []frozenItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("item[%d] %s: %w", i, product.Name, ErrProductUnavailable)
		}

		modifiers := pricing.ParseModifiers(product.Modifiers)
		if missing := modifiers.MissingSelections(item.Customizations); len(missing) > 0 {
			return nil, fmt.Errorf("item[%d] %s: %w: %v", i, product.Name, ErrMissingSelection, missing)
		}

		customizations, err := json.Marshal(item.Customizations)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: encode customizations: %w", i, err)
		}

		items = append(items, frozenItem{params: database.CreateOrderItemParams{
			ProductID:      productID,
			Name:           product.Name,
			UnitPrice:      product.Price,
			Customizations: customizations,
			Quantity:       item.Quantity,
			Status:         enum.ItemStatusPendiente,
		}})
	}

	// --- Insert order header ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		OrderType:       req.OrderType,
		TableCode:       textOrNull(req.TableCode),
		CustomerName:    textOrNull(req.CustomerName),
		CustomerPhone:   textOrNull(req.CustomerPhone),
		DeliveryAddress: textOrNull(req.DeliveryAddress),
		PaymentMethod:   textOrNull(req.PaymentMethod),
		Instructions:    textOrNull(req.Instructions),
		Status:          enum.OrderStatusPendiente,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Mesa orders claim their table in the same transaction ---
	if req.OrderType == enum.OrderTypeMesa {
		if _, err := store.OccupyTable(ctx, database.OccupyTableParams{
			Code:    req.TableCode,
			OrderID: order.ID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableUnavailable
			}
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	// --- Insert frozen items ---
	var created []database.OrderItem
	for _, fi := range items {
		fi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, fi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Items: created,
		Total: OrderTotal(created),
	}, nil
}

// OrderTotal derives an order's total from its item snapshots. Totals
// are never stored; every caller recomputes from here.
func OrderTotal(items []database.OrderItem) decimal.Decimal {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		var customizations map[string]any
		if len(it.Customizations) > 0 {
			// Undecodable customizations price at zero.
			_ = json.Unmarshal(it.Customizations, &customizations)
		}
		lines = append(lines, pricing.Line{
			Price:          pricing.FromNumeric(it.UnitPrice),
			Customizations: customizations,
			Quantity:       it.Quantity,
		})
	}
	return pricing.Total(lines)
}

// --- Helpers ---

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodEfectivo, enum.PaymentMethodYape,
		enum.PaymentMethodPlin, enum.PaymentMethodTarjeta:
		return true
	}
	return false
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
