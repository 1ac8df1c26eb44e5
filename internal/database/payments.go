package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, method, amount, amount_received, change_amount, processed_by, processed_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount,
		&p.AmountReceived, &p.ChangeAmount, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

type CreatePaymentParams struct {
	OrderID        uuid.UUID
	Method         string
	Amount         pgtype.Numeric
	AmountReceived pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	ProcessedBy    uuid.UUID
}

// CreatePayment records a settlement against an order.
func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, `
		INSERT INTO payments (order_id, method, amount, amount_received, change_amount, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		arg.OrderID, arg.Method, arg.Amount, arg.AmountReceived,
		arg.ChangeAmount, arg.ProcessedBy))
}

// ListPaymentsByOrder returns the payments recorded for an order.
func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY processed_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DailySummaryRow aggregates today's revenue for the cashier dashboard.
type DailySummaryRow struct {
	Revenue    pgtype.Numeric
	PaidOrders int64
}

// GetDailyPaymentSummary sums today's payments and counts paid orders.
func (q *Queries) GetDailyPaymentSummary(ctx context.Context) (DailySummaryRow, error) {
	var r DailySummaryRow
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(DISTINCT order_id)
		FROM payments
		WHERE processed_at::date = CURRENT_DATE`).Scan(&r.Revenue, &r.PaidOrders)
	return r, err
}

// OrderStatusCount is one row of today's order counts by status.
type OrderStatusCount struct {
	Status string
	Count  int64
}

// CountTodayOrdersByStatus groups today's orders by status.
func (q *Queries) CountTodayOrdersByStatus(ctx context.Context) ([]OrderStatusCount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT status, COUNT(*) FROM orders
		WHERE created_at::date = CURRENT_DATE
		GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []OrderStatusCount
	for rows.Next() {
		var c OrderStatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
