package service

import (
	"context"
	"errors"
	"testing"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/delicias-restaurant/api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// mockTransitionStore implements TransitionStore with configurable
// behavior.
type mockTransitionStore struct {
	getOrderForUpdateFn      func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn      func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	listOrderItemsByOrderFn  func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	getOrderItemFn           func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	markOrderItemReadyFn     func(ctx context.Context, arg database.MarkOrderItemReadyParams) (database.OrderItem, error)
	markAllOrderItemsReadyFn func(ctx context.Context, orderID uuid.UUID) (int64, error)
	countPendingItemsFn      func(ctx context.Context, orderID uuid.UUID) (int64, error)
	createPaymentFn          func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

func (m *mockTransitionStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockTransitionStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockTransitionStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockTransitionStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, arg)
}
func (m *mockTransitionStore) MarkOrderItemReady(ctx context.Context, arg database.MarkOrderItemReadyParams) (database.OrderItem, error) {
	return m.markOrderItemReadyFn(ctx, arg)
}
func (m *mockTransitionStore) MarkAllOrderItemsReady(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.markAllOrderItemsReadyFn(ctx, orderID)
}
func (m *mockTransitionStore) CountPendingItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.countPendingItemsFn(ctx, orderID)
}
func (m *mockTransitionStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	return m.createPaymentFn(ctx, arg)
}

func newTransitionTestService(store *mockTransitionStore) (*TransitionService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) TransitionStore { return store }
	return NewTransitionService(pool, newStore), tx
}

// transitionStore returns a mock built around one order in the given
// status with the given items. Status updates are recorded and applied.
func transitionStore(order *database.Order, items []database.OrderItem) *mockTransitionStore {
	return &mockTransitionStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != order.ID {
				return database.Order{}, pgx.ErrNoRows
			}
			return *order, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.ID != order.ID || order.Status != arg.PrevStatus {
				return database.Order{}, pgx.ErrNoRows
			}
			order.Status = arg.Status
			return *order, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return items, nil
		},
		getOrderItemFn: func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
			for _, it := range items {
				if it.ID == arg.ID {
					return it, nil
				}
			}
			return database.OrderItem{}, pgx.ErrNoRows
		},
		markOrderItemReadyFn: func(ctx context.Context, arg database.MarkOrderItemReadyParams) (database.OrderItem, error) {
			for i := range items {
				if items[i].ID == arg.ID && items[i].Status == enum.ItemStatusPendiente {
					items[i].Status = enum.ItemStatusListo
					return items[i], nil
				}
			}
			return database.OrderItem{}, pgx.ErrNoRows
		},
		markAllOrderItemsReadyFn: func(ctx context.Context, orderID uuid.UUID) (int64, error) {
			var n int64
			for i := range items {
				if items[i].Status == enum.ItemStatusPendiente {
					items[i].Status = enum.ItemStatusListo
					n++
				}
			}
			return n, nil
		},
		countPendingItemsFn: func(ctx context.Context, orderID uuid.UUID) (int64, error) {
			var n int64
			for _, it := range items {
				if it.Status == enum.ItemStatusPendiente {
					n++
				}
			}
			return n, nil
		},
		createPaymentFn: func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
			return database.Payment{
				ID:             uuid.New(),
				OrderID:        arg.OrderID,
				Method:         arg.Method,
				Amount:         arg.Amount,
				AmountReceived: arg.AmountReceived,
				ChangeAmount:   arg.ChangeAmount,
				ProcessedBy:    arg.ProcessedBy,
			}, nil
		},
	}
}

func twoItemOrder(status string) (*database.Order, []database.OrderItem) {
	order := &database.Order{ID: uuid.New(), OrderNumber: "DEL-001", Status: status}
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, Name: "Ceviche Clasico", UnitPrice: makeNumeric("28.00"), Quantity: 1, Status: enum.ItemStatusPendiente},
		{ID: uuid.New(), OrderID: order.ID, Name: "Chicha Morada", UnitPrice: makeNumeric("8.00"), Quantity: 2, Status: enum.ItemStatusPendiente},
	}
	return order, items
}

// --- Tests ---

func TestConfirm(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPendiente)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	result, err := svc.Confirm(context.Background(), enum.RoleMesero, order.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Order.Status != enum.OrderStatusConfirmado {
		t.Errorf("status = %q, want CONFIRMADO", result.Order.Status)
	}
}

func TestConfirm_RoleGuard(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPendiente)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	for _, role := range []string{enum.RoleCocinero, enum.RoleCajero, enum.RoleCliente} {
		if _, err := svc.Confirm(context.Background(), role, order.ID); !errors.Is(err, rbac.ErrInsufficientRole) {
			t.Errorf("role %s: err = %v, want ErrInsufficientRole", role, err)
		}
	}
	if order.Status != enum.OrderStatusPendiente {
		t.Errorf("status changed to %q by denied calls", order.Status)
	}
}

func TestConfirm_WrongState(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPagado)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	_, err := svc.Confirm(context.Background(), enum.RoleAdmin, order.ID)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want StateError", err)
	}
	if stateErr.Current != enum.OrderStatusPagado {
		t.Errorf("StateError.Current = %q, want PAGADO", stateErr.Current)
	}
}

func TestConfirm_NotFound(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPendiente)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	if _, err := svc.Confirm(context.Background(), enum.RoleMesero, uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestMarkItemReady_AdvancesOrderWhenLastItemFlips(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	svc, _ := newTransitionTestService(transitionStore(order, items))
	ctx := context.Background()

	result, err := svc.MarkItemReady(ctx, enum.RoleCocinero, order.ID, items[0].ID)
	if err != nil {
		t.Fatalf("MarkItemReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusConfirmado {
		t.Errorf("order advanced early: status = %q", result.Order.Status)
	}

	result, err = svc.MarkItemReady(ctx, enum.RoleCocinero, order.ID, items[1].ID)
	if err != nil {
		t.Fatalf("MarkItemReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusListo {
		t.Errorf("status = %q, want LISTO after last item", result.Order.Status)
	}
}

func TestMarkItemReady_Idempotent(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	items[0].Status = enum.ItemStatusListo
	svc, _ := newTransitionTestService(transitionStore(order, items))

	result, err := svc.MarkItemReady(context.Background(), enum.RoleCocinero, order.ID, items[0].ID)
	if err != nil {
		t.Fatalf("MarkItemReady on LISTO item: %v", err)
	}
	if result.Order.Status != enum.OrderStatusConfirmado {
		t.Errorf("status = %q, want CONFIRMADO unchanged", result.Order.Status)
	}
}

func TestMarkItemReady_DoubleClickOnLastItem(t *testing.T) {
	order := &database.Order{ID: uuid.New(), OrderNumber: "DEL-001", Status: enum.OrderStatusConfirmado}
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, Name: "Ceviche Clasico", UnitPrice: makeNumeric("28.00"), Quantity: 1, Status: enum.ItemStatusPendiente},
	}
	svc, _ := newTransitionTestService(transitionStore(order, items))
	ctx := context.Background()

	result, err := svc.MarkItemReady(ctx, enum.RoleCocinero, order.ID, items[0].ID)
	if err != nil {
		t.Fatalf("MarkItemReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusListo {
		t.Fatalf("status = %q, want LISTO after the only item", result.Order.Status)
	}

	// The repeat of the same click lands after the order advanced; it
	// must stay a no-op, not a state conflict.
	result, err = svc.MarkItemReady(ctx, enum.RoleCocinero, order.ID, items[0].ID)
	if err != nil {
		t.Fatalf("repeated MarkItemReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusListo {
		t.Errorf("status = %q, want LISTO unchanged", result.Order.Status)
	}
	if result.Items[0].Status != enum.ItemStatusListo {
		t.Errorf("item status = %q, want LISTO", result.Items[0].Status)
	}
}

func TestMarkItemReady_UnknownItemOnReadyOrder(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusListo)
	items[0].Status = enum.ItemStatusListo
	items[1].Status = enum.ItemStatusListo
	svc, _ := newTransitionTestService(transitionStore(order, items))

	if _, err := svc.MarkItemReady(context.Background(), enum.RoleCocinero, order.ID, uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestMarkItemReady_UnknownItem(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	if _, err := svc.MarkItemReady(context.Background(), enum.RoleCocinero, order.ID, uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestMarkItemReady_RequiresConfirmedOrder(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPendiente)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	_, err := svc.MarkItemReady(context.Background(), enum.RoleCocinero, order.ID, items[0].ID)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Errorf("err = %v, want StateError", err)
	}
}

func TestMarkAllItemsReady(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	result, err := svc.MarkAllItemsReady(context.Background(), enum.RoleCocinero, order.ID)
	if err != nil {
		t.Fatalf("MarkAllItemsReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusListo {
		t.Errorf("status = %q, want LISTO", result.Order.Status)
	}
	for _, it := range result.Items {
		if it.Status != enum.ItemStatusListo {
			t.Errorf("item %s still %s", it.Name, it.Status)
		}
	}
}

func TestMarkAllItemsReady_Repeatable(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	svc, _ := newTransitionTestService(transitionStore(order, items))
	ctx := context.Background()

	if _, err := svc.MarkAllItemsReady(ctx, enum.RoleCocinero, order.ID); err != nil {
		t.Fatalf("MarkAllItemsReady: %v", err)
	}

	result, err := svc.MarkAllItemsReady(ctx, enum.RoleCocinero, order.ID)
	if err != nil {
		t.Fatalf("repeated MarkAllItemsReady: %v", err)
	}
	if result.Order.Status != enum.OrderStatusListo {
		t.Errorf("status = %q, want LISTO unchanged", result.Order.Status)
	}
}

func TestRecordPayment_CashWithChange(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusListo)
	store := transitionStore(order, items)

	var payment *database.CreatePaymentParams
	base := store.createPaymentFn
	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		payment = &arg
		return base(ctx, arg)
	}

	svc, _ := newTransitionTestService(store)
	cashier := uuid.New()
	result, err := svc.RecordPayment(context.Background(), enum.RoleCajero, cashier, order.ID, PaymentRequest{
		Method:         enum.PaymentMethodEfectivo,
		AmountReceived: decimal.RequireFromString("50"),
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	// Total is 28 + 8*2 = 44, so change is 6.
	if result.Order.Status != enum.OrderStatusPagado {
		t.Errorf("status = %q, want PAGADO", result.Order.Status)
	}
	if payment == nil {
		t.Fatal("no payment recorded")
	}
	if got := numericString(payment.ChangeAmount); got != "6.00" {
		t.Errorf("change = %s, want 6.00", got)
	}
	if payment.ProcessedBy != cashier {
		t.Errorf("processed_by = %s, want %s", payment.ProcessedBy, cashier)
	}
}

func TestRecordPayment_CashBelowTotal(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusListo)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	_, err := svc.RecordPayment(context.Background(), enum.RoleCajero, uuid.New(), order.ID, PaymentRequest{
		Method:         enum.PaymentMethodEfectivo,
		AmountReceived: decimal.RequireFromString("40"),
	})
	if !errors.Is(err, ErrInsufficientCash) {
		t.Errorf("err = %v, want ErrInsufficientCash", err)
	}
	if order.Status != enum.OrderStatusListo {
		t.Errorf("status = %q, want LISTO unchanged", order.Status)
	}
}

func TestRecordPayment_DigitalFromConfirmado(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusConfirmado)
	svc, _ := newTransitionTestService(transitionStore(order, items))

	result, err := svc.RecordPayment(context.Background(), enum.RoleCajero, uuid.New(), order.ID, PaymentRequest{
		Method: enum.PaymentMethodYape,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if result.Order.Status != enum.OrderStatusPagado {
		t.Errorf("status = %q, want PAGADO", result.Order.Status)
	}
}

func TestRecordPayment_Guards(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusListo)
	svc, _ := newTransitionTestService(transitionStore(order, items))
	ctx := context.Background()

	if _, err := svc.RecordPayment(ctx, enum.RoleMesero, uuid.New(), order.ID, PaymentRequest{Method: enum.PaymentMethodYape}); !errors.Is(err, rbac.ErrInsufficientRole) {
		t.Errorf("mesero: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := svc.RecordPayment(ctx, enum.RoleCajero, uuid.New(), order.ID, PaymentRequest{Method: "cheque"}); !errors.Is(err, ErrPaymentMethod) {
		t.Errorf("bad method: err = %v, want ErrPaymentMethod", err)
	}
	if _, err := svc.RecordPayment(ctx, enum.RoleCajero, uuid.New(), order.ID, PaymentRequest{Method: enum.PaymentMethodEfectivo}); !errors.Is(err, ErrCashAmount) {
		t.Errorf("no tendered amount: err = %v, want ErrCashAmount", err)
	}

	order.Status = enum.OrderStatusPendiente
	_, err := svc.RecordPayment(ctx, enum.RoleCajero, uuid.New(), order.ID, PaymentRequest{Method: enum.PaymentMethodYape})
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Errorf("pendiente order: err = %v, want StateError", err)
	}
}

func TestCancel(t *testing.T) {
	order, items := twoItemOrder(enum.OrderStatusPendiente)
	svc, _ := newTransitionTestService(transitionStore(order, items))
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, enum.RoleMesero, order.ID); !errors.Is(err, rbac.ErrInsufficientRole) {
		t.Errorf("mesero cancel: err = %v, want ErrInsufficientRole", err)
	}

	result, err := svc.Cancel(ctx, enum.RoleAdmin, order.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if result.Order.Status != enum.OrderStatusCancelado {
		t.Errorf("status = %q, want CANCELADO", result.Order.Status)
	}

	// Terminal: cancelling again conflicts.
	_, err = svc.Cancel(ctx, enum.RoleAdmin, order.ID)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Errorf("second cancel: err = %v, want StateError", err)
	}
}
