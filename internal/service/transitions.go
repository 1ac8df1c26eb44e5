package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/delicias-restaurant/api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned by order transitions.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrInsufficientCash = errors.New("amount received is below the order total")
	ErrCashAmount       = errors.New("amount_received is required for efectivo payments")
)

// StateError reports a transition the order's current state does not
// allow. Handlers map it to 409.
type StateError struct {
	Current   string
	Requested string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("order is %s, cannot move to %s", e.Current, e.Requested)
}

// allowedTransitions is the single source of truth for the order state
// machine. PAGADO and CANCELADO are terminal.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPendiente:  {enum.OrderStatusConfirmado, enum.OrderStatusCancelado},
	enum.OrderStatusConfirmado: {enum.OrderStatusListo, enum.OrderStatusPagado, enum.OrderStatusCancelado},
	enum.OrderStatusListo:      {enum.OrderStatusPagado},
}

func canTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionStore defines the DB methods needed for status transitions.
// Satisfied by *database.Queries (and its WithTx variant).
type TransitionStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	MarkOrderItemReady(ctx context.Context, arg database.MarkOrderItemReadyParams) (database.OrderItem, error)
	MarkAllOrderItemsReady(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountPendingItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewTransitionStore creates a TransitionStore from a DBTX (pool or tx).
type NewTransitionStore func(db database.DBTX) TransitionStore

// TransitionResult is the order after a transition, with its items so
// pushes and responses carry a complete snapshot.
type TransitionResult struct {
	Order database.Order
	Items []database.OrderItem
	Total decimal.Decimal
}

// TransitionService applies role-guarded order status transitions. Every
// method locks the order row first, so concurrent transitions on the
// same order serialize and the state machine check always sees the
// committed status.
type TransitionService struct {
	pool     TxBeginner
	newStore NewTransitionStore
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(pool TxBeginner, newStore NewTransitionStore) *TransitionService {
	return &TransitionService{pool: pool, newStore: newStore}
}

// Confirm moves a PENDIENTE order to CONFIRMADO. Waiter action.
func (s *TransitionService) Confirm(ctx context.Context, actorRole string, orderID uuid.UUID) (*TransitionResult, error) {
	if err := rbac.Check(actorRole, rbac.ActionConfirmOrder); err != nil {
		return nil, err
	}
	return s.transition(ctx, orderID, enum.OrderStatusConfirmado)
}

// Cancel voids an order that has not been prepared or paid.
func (s *TransitionService) Cancel(ctx context.Context, actorRole string, orderID uuid.UUID) (*TransitionResult, error) {
	if err := rbac.Check(actorRole, rbac.ActionCancelOrder); err != nil {
		return nil, err
	}
	return s.transition(ctx, orderID, enum.OrderStatusCancelado)
}

// MarkItemReady flips one PENDIENTE item to LISTO. Kitchen action.
// Marking an item that is already LISTO is an idempotent no-op. When the
// last item flips, the order itself advances to LISTO in the same
// transaction.
func (s *TransitionService) MarkItemReady(ctx context.Context, actorRole string, orderID, itemID uuid.UUID) (*TransitionResult, error) {
	if err := rbac.Check(actorRole, rbac.ActionMarkItemReady); err != nil {
		return nil, err
	}
	return s.inTx(ctx, func(store TransitionStore) (*TransitionResult, error) {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		switch order.Status {
		case enum.OrderStatusConfirmado:
		case enum.OrderStatusListo:
			// The order already advanced, which happens the moment the
			// last item flips. A repeat click on an item that is already
			// LISTO must stay a no-op, so re-check the item instead of
			// rejecting on the order status.
			item, getErr := store.GetOrderItem(ctx, database.GetOrderItemParams{
				ID: itemID, OrderID: orderID,
			})
			if errors.Is(getErr, pgx.ErrNoRows) {
				return nil, ErrItemNotFound
			}
			if getErr != nil {
				return nil, getErr
			}
			if item.Status == enum.ItemStatusListo {
				return s.withItems(ctx, store, order)
			}
			return nil, &StateError{Current: order.Status, Requested: enum.OrderStatusListo}
		default:
			return nil, &StateError{Current: order.Status, Requested: enum.OrderStatusListo}
		}

		_, err = store.MarkOrderItemReady(ctx, database.MarkOrderItemReadyParams{
			ID: itemID, OrderID: orderID,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the item is already LISTO (no-op) or it does not
			// belong to this order.
			if _, getErr := store.GetOrderItem(ctx, database.GetOrderItemParams{
				ID: itemID, OrderID: orderID,
			}); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrItemNotFound
				}
				return nil, getErr
			}
		} else if err != nil {
			return nil, fmt.Errorf("mark item ready: %w", err)
		}

		return s.advanceIfAllReady(ctx, store, order)
	})
}

// MarkAllItemsReady flips every remaining PENDIENTE item of a CONFIRMADO
// order to LISTO and advances the order.
func (s *TransitionService) MarkAllItemsReady(ctx context.Context, actorRole string, orderID uuid.UUID) (*TransitionResult, error) {
	if err := rbac.Check(actorRole, rbac.ActionMarkItemReady); err != nil {
		return nil, err
	}
	return s.inTx(ctx, func(store TransitionStore) (*TransitionResult, error) {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == enum.OrderStatusListo {
			// Everything is already prepared; repeating the action is a
			// no-op.
			return s.withItems(ctx, store, order)
		}
		if order.Status != enum.OrderStatusConfirmado {
			return nil, &StateError{Current: order.Status, Requested: enum.OrderStatusListo}
		}
		if _, err := store.MarkAllOrderItemsReady(ctx, orderID); err != nil {
			return nil, fmt.Errorf("mark all items ready: %w", err)
		}
		return s.advanceIfAllReady(ctx, store, order)
	})
}

// PaymentRequest is the cashier's input when settling an order.
type PaymentRequest struct {
	Method         string
	AmountReceived decimal.Decimal
}

// RecordPayment settles an order and moves it to PAGADO. Payment is
// accepted from CONFIRMADO (pay before pickup) or LISTO. For efectivo
// the tendered amount must cover the total and the change is recorded;
// other methods are recorded as exact settlements.
func (s *TransitionService) RecordPayment(ctx context.Context, actorRole string, actorID uuid.UUID, orderID uuid.UUID, req PaymentRequest) (*TransitionResult, error) {
	if err := rbac.Check(actorRole, rbac.ActionRecordPayment); err != nil {
		return nil, err
	}
	if !isValidPaymentMethod(req.Method) {
		return nil, ErrPaymentMethod
	}

	return s.inTx(ctx, func(store TransitionStore) (*TransitionResult, error) {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		if !canTransition(order.Status, enum.OrderStatusPagado) {
			return nil, &StateError{Current: order.Status, Requested: enum.OrderStatusPagado}
		}

		items, err := store.ListOrderItemsByOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		total := OrderTotal(items)

		received := total
		change := decimal.Zero
		if req.Method == enum.PaymentMethodEfectivo {
			if req.AmountReceived.IsZero() {
				return nil, ErrCashAmount
			}
			if req.AmountReceived.LessThan(total) {
				return nil, ErrInsufficientCash
			}
			received = req.AmountReceived
			change = received.Sub(total)
		}

		if _, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:        orderID,
			Method:         req.Method,
			Amount:         pricing.ToNumeric(total),
			AmountReceived: pricing.ToNumeric(received),
			ChangeAmount:   pricing.ToNumeric(change),
			ProcessedBy:    actorID,
		}); err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}

		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         orderID,
			Status:     enum.OrderStatusPagado,
			PrevStatus: order.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
		return &TransitionResult{Order: updated, Items: items, Total: total}, nil
	})
}

// transition applies a plain status change guarded by the state machine.
func (s *TransitionService) transition(ctx context.Context, orderID uuid.UUID, to string) (*TransitionResult, error) {
	return s.inTx(ctx, func(store TransitionStore) (*TransitionResult, error) {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		if !canTransition(order.Status, to) {
			return nil, &StateError{Current: order.Status, Requested: to}
		}
		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         orderID,
			Status:     to,
			PrevStatus: order.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
		return s.withItems(ctx, store, updated)
	})
}

// advanceIfAllReady moves a CONFIRMADO order to LISTO once no PENDIENTE
// items remain, then returns the final snapshot.
func (s *TransitionService) advanceIfAllReady(ctx context.Context, store TransitionStore, order database.Order) (*TransitionResult, error) {
	pending, err := store.CountPendingItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("count pending items: %w", err)
	}
	if pending == 0 {
		order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     enum.OrderStatusListo,
			PrevStatus: enum.OrderStatusConfirmado,
		})
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}
	return s.withItems(ctx, store, order)
}

func (s *TransitionService) withItems(ctx context.Context, store TransitionStore, order database.Order) (*TransitionResult, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &TransitionResult{Order: order, Items: items, Total: OrderTotal(items)}, nil
}

func lockOrder(ctx context.Context, store TransitionStore, orderID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// inTx runs fn inside a transaction built from the injected store
// constructor.
func (s *TransitionService) inTx(ctx context.Context, fn func(TransitionStore) (*TransitionResult, error)) (*TransitionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	result, err := fn(s.newStore(tx))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
