package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `code, capacity, status, current_order_id`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.Code, &t.Capacity, &t.Status, &t.CurrentOrderID)
	return t, err
}

// ListTables returns the whole registry ordered by code.
func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	return q.listTables(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables ORDER BY code`)
}

// ListFreeTables returns only libre tables: the choice set for
// self-ordering.
func (q *Queries) ListFreeTables(ctx context.Context) ([]Table, error) {
	return q.listTables(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE status = 'libre' ORDER BY code`)
}

func (q *Queries) listTables(ctx context.Context, sql string) ([]Table, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// GetTable returns one registry entry by code.
func (q *Queries) GetTable(ctx context.Context, code string) (Table, error) {
	return scanTable(q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE code = $1`, code))
}

type OccupyTableParams struct {
	Code    string
	OrderID uuid.UUID
}

// OccupyTable atomically flips a libre table to ocupada and links the
// order. Returns pgx.ErrNoRows when the table does not exist or is not
// libre, so order creation and table linkage commit or fail together.
func (q *Queries) OccupyTable(ctx context.Context, arg OccupyTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, `
		UPDATE restaurant_tables
		SET status = 'ocupada', current_order_id = $2
		WHERE code = $1 AND status = 'libre'
		RETURNING `+tableColumns, arg.Code, arg.OrderID))
}

type SetTableStatusParams struct {
	Code   string
	Status string
}

// SetTableStatus is the explicit staff action for occupancy changes.
// Moving a table off ocupada clears its order link.
func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, `
		UPDATE restaurant_tables
		SET status = $2,
		    current_order_id = CASE WHEN $2 = 'ocupada' THEN current_order_id ELSE NULL END
		WHERE code = $1
		RETURNING `+tableColumns, arg.Code, arg.Status))
}

type CreateTableParams struct {
	Code     string
	Capacity int32
}

// CreateTable registers a physical table; used by seeding.
func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, `
		INSERT INTO restaurant_tables (code, capacity, status)
		VALUES ($1, $2, 'libre')
		ON CONFLICT (code) DO UPDATE SET capacity = EXCLUDED.capacity
		RETURNING `+tableColumns, arg.Code, arg.Capacity))
}
