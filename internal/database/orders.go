package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, order_type, table_code, customer_name, customer_phone, delivery_address, payment_method, instructions, status, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.OrderType, &o.TableCode,
		&o.CustomerName, &o.CustomerPhone, &o.DeliveryAddress,
		&o.PaymentMethod, &o.Instructions, &o.Status, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetNextOrderNumber returns the next sequential order number. Two
// concurrent transactions may read the same MAX; the unique constraint
// on order_number catches the race and the caller retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INT)), 0) + 1
		FROM orders`).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
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
}

// CreateOrder inserts a new order header.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		INSERT INTO orders (order_number, order_type, table_code, customer_name, customer_phone, delivery_address, payment_method, instructions, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		arg.OrderNumber, arg.OrderType, arg.TableCode, arg.CustomerName,
		arg.CustomerPhone, arg.DeliveryAddress, arg.PaymentMethod,
		arg.Instructions, arg.Status, arg.CreatedBy))
}

// GetOrder returns an order by ID.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetOrderForUpdate locks the order row for the rest of the transaction
// so concurrent transitions on the same order serialize.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id))
}

type ListOrdersParams struct {
	Status    pgtype.Text
	OrderType pgtype.Text
	Limit     int32
	Offset    int32
}

// ListOrders returns orders newest first with optional status/type filters.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::text IS NULL OR status = $1::order_status)
		  AND ($2::text IS NULL OR order_type = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.Status, arg.OrderType, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOrdersByUser returns the orders created by one user, newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, createdBy uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE created_by = $1 ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus applies a compare-and-set status transition: the
// update only succeeds when the order is still in PrevStatus, so a
// stale read never clobbers a concurrent transition.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PrevStatus))
}

const orderItemColumns = `id, order_id, product_id, name, unit_price, customizations, quantity, status`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name,
		&it.UnitPrice, &it.Customizations, &it.Quantity, &it.Status)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Name           string
	UnitPrice      pgtype.Numeric
	Customizations []byte
	Quantity       int32
	Status         string
}

// CreateOrderItem inserts one frozen cart line for an order.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, name, unit_price, customizations, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.ProductID, arg.Name, arg.UnitPrice,
		arg.Customizations, arg.Quantity, arg.Status))
}

// ListOrderItemsByOrder returns the items of an order in insert order.
func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

// GetOrderItem returns one item of an order.
func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = $1 AND order_id = $2`,
		arg.ID, arg.OrderID))
}

type MarkOrderItemReadyParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

// MarkOrderItemReady moves a PENDIENTE item to LISTO. No rows are
// affected when the item is already LISTO; the caller treats that as an
// idempotent no-op.
func (q *Queries) MarkOrderItemReady(ctx context.Context, arg MarkOrderItemReadyParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		UPDATE order_items SET status = 'LISTO'
		WHERE id = $1 AND order_id = $2 AND status = 'PENDIENTE'
		RETURNING `+orderItemColumns, arg.ID, arg.OrderID))
}

// MarkAllOrderItemsReady moves every PENDIENTE item of an order to LISTO
// and reports how many flipped.
func (q *Queries) MarkAllOrderItemsReady(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE order_items SET status = 'LISTO'
		WHERE order_id = $1 AND status = 'PENDIENTE'`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountPendingItems returns how many items of the order are not yet LISTO.
func (q *Queries) CountPendingItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM order_items
		WHERE order_id = $1 AND status = 'PENDIENTE'`, orderID).Scan(&n)
	return n, err
}
