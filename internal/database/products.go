package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, description, price, category, image, is_available, preparation_time, modifiers, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Image, &p.IsAvailable, &p.PreparationTime, &p.Modifiers,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProducts returns the full catalog, newest first. Unavailable items
// are included; clients filter on the availability flag.
func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns a single product by ID.
func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

type CreateProductParams struct {
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Category        string
	Image           pgtype.Text
	IsAvailable     bool
	PreparationTime int32
	Modifiers       []byte
}

// CreateProduct inserts a new menu item.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `
		INSERT INTO products (name, description, price, category, image, is_available, preparation_time, modifiers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		arg.Name, arg.Description, arg.Price, arg.Category, arg.Image,
		arg.IsAvailable, arg.PreparationTime, arg.Modifiers))
}

type UpdateProductParams struct {
	ID              uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Category        string
	Image           pgtype.Text
	IsAvailable     bool
	PreparationTime int32
	Modifiers       []byte
}

// UpdateProduct replaces the mutable fields of a menu item.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5,
		    image = $6, is_available = $7, preparation_time = $8,
		    modifiers = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.Category,
		arg.Image, arg.IsAvailable, arg.PreparationTime, arg.Modifiers))
}

type SetProductAvailabilityParams struct {
	ID          uuid.UUID
	IsAvailable bool
}

// SetProductAvailability flips the binary available/unavailable flag.
func (q *Queries) SetProductAvailability(ctx context.Context, arg SetProductAvailabilityParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `
		UPDATE products SET is_available = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, arg.ID, arg.IsAvailable))
}

// DeleteProduct removes a menu item.
func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
