package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reservationColumns = `id, name, phone, reserved_for, guests, status, created_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.Name, &r.Phone, &r.ReservedFor,
		&r.Guests, &r.Status, &r.CreatedAt)
	return r, err
}

type CreateReservationParams struct {
	Name        string
	Phone       string
	ReservedFor time.Time
	Guests      int32
}

// CreateReservation inserts a pending reservation.
func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, `
		INSERT INTO reservations (name, phone, reserved_for, guests)
		VALUES ($1, $2, $3, $4)
		RETURNING `+reservationColumns,
		arg.Name, arg.Phone, arg.ReservedFor, arg.Guests))
}

// GetReservation returns one reservation by ID.
func (q *Queries) GetReservation(ctx context.Context, id uuid.UUID) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
}

// ListReservations returns all reservations, soonest first.
func (q *Queries) ListReservations(ctx context.Context) ([]Reservation, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY reserved_for`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

type UpdateReservationStatusParams struct {
	ID     uuid.UUID
	Status string
}

// UpdateReservationStatus is the admin action on a reservation.
func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, `
		UPDATE reservations SET status = $2
		WHERE id = $1
		RETURNING `+reservationColumns, arg.ID, arg.Status))
}

// DeleteReservation removes a reservation.
func (q *Queries) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
