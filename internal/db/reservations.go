package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/Spinergy/internal/models"
)

const reservationColumns = `id, resource_id, date, start_minute, end_minute, duration_minutes,
	start_at, end_at, owner_ref, customer_name, customer_email, customer_phone,
	coaching, price_amount, currency, batch_id, status, cancelled_at, cancel_reason, created_at`

const insertReservation = `INSERT INTO reservations (` + reservationColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertReservation stores r. A unique violation on the confirmed-slot index is returned
// as a models.ConflictError.
func (q *Queries) InsertReservation(ctx context.Context, r models.Reservation) error {
	_, err := q.exec(ctx, insertReservation, reservationArgs(r)...)
	if err != nil {
		if IsUniqueViolation(err) {
			return conflictFor(r)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// InsertReservationIfFree stores r only when no confirmed reservation on the same
// resource and date intersects its minute interval. It must run inside a transaction
// after LockSlotRange.
func (q *Queries) InsertReservationIfFree(ctx context.Context, r models.Reservation) error {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM reservations
WHERE resource_id = ? AND date = ? AND status = 'confirmed'
  AND start_minute < ? AND end_minute > ?`, r.ResourceID, r.Date.String(), r.EndMinute, r.StartMinute).Scan(&n)
	if err != nil {
		return fmt.Errorf("check overlapping reservations: %w", err)
	}
	if n > 0 {
		return conflictFor(r)
	}
	return q.InsertReservation(ctx, r)
}

// ListActiveReservations returns confirmed reservations of a resource on a date.
func (q *Queries) ListActiveReservations(ctx context.Context, resourceID string, date models.Date) ([]models.Reservation, error) {
	rows, err := q.query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE resource_id = ? AND date = ? AND status = 'confirmed'
ORDER BY start_minute, duration_minutes`, resourceID, date.String())
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return scanReservations(rows)
}

func (q *Queries) GetReservation(ctx context.Context, id string) (models.Reservation, error) {
	row := q.queryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, fmt.Errorf("reservation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListReservationsByOwner returns the owner's reservations on or after from, cancelled
// ones included.
func (q *Queries) ListReservationsByOwner(ctx context.Context, ownerRef string, from models.Date) ([]models.Reservation, error) {
	rows, err := q.query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE owner_ref = ? AND date >= ?
ORDER BY date, start_minute`, ownerRef, from.String())
	if err != nil {
		return nil, fmt.Errorf("list owner reservations: %w", err)
	}
	return scanReservations(rows)
}

// ListReservationsStartingBetween returns confirmed reservations whose start instant lies
// in [from, to).
func (q *Queries) ListReservationsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	rows, err := q.query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE status = 'confirmed' AND start_at >= ? AND start_at < ?
ORDER BY start_at`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list upcoming reservations: %w", err)
	}
	return scanReservations(rows)
}

// CancelReservation moves a confirmed reservation to the cancelled state. It reports
// whether a row changed.
func (q *Queries) CancelReservation(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	res, err := q.exec(ctx, `UPDATE reservations
SET status = 'cancelled', cancelled_at = ?, cancel_reason = ?
WHERE id = ? AND status = 'confirmed'`, at.Unix(), reason, id)
	if err != nil {
		return false, fmt.Errorf("cancel reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel reservation: %w", err)
	}
	return n > 0, nil
}

// LockSlotRange serialises overlap checks for a resource and date inside a Postgres
// transaction. SQLite transactions already hold the database write lock.
func (q *Queries) LockSlotRange(ctx context.Context, resourceID string, date models.Date) error {
	if q.dialect != DialectPostgres {
		return nil
	}
	if _, err := q.exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, resourceID+"|"+date.String()); err != nil {
		return fmt.Errorf("lock slot range: %w", err)
	}
	return nil
}

func reservationArgs(r models.Reservation) []interface{} {
	var cancelledAt sql.NullInt64
	if r.CancelledAt != nil {
		cancelledAt = sql.NullInt64{Int64: r.CancelledAt.Unix(), Valid: true}
	}
	status := r.Status
	if status == "" {
		status = models.ReservationStatusConfirmed
	}
	return []interface{}{
		r.ID, r.ResourceID, r.Date.String(), r.StartMinute, r.EndMinute, r.DurationMinutes,
		r.StartAt.Unix(), r.EndAt.Unix(), r.OwnerRef, r.Customer.Name, r.Customer.Email, r.Customer.Phone,
		r.Coaching, r.PriceAmount, r.Currency, r.BatchID, string(status), cancelledAt, r.CancelReason,
		r.CreatedAt.Unix(),
	}
}

func conflictFor(r models.Reservation) models.ConflictError {
	return models.ConflictError{
		ResourceID:      r.ResourceID,
		Date:            r.Date,
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (models.Reservation, error) {
	var (
		r           models.Reservation
		date        string
		status      string
		startAt     int64
		endAt       int64
		createdAt   int64
		cancelledAt sql.NullInt64
	)
	if err := row.Scan(
		&r.ID, &r.ResourceID, &date, &r.StartMinute, &r.EndMinute, &r.DurationMinutes,
		&startAt, &endAt, &r.OwnerRef, &r.Customer.Name, &r.Customer.Email, &r.Customer.Phone,
		&r.Coaching, &r.PriceAmount, &r.Currency, &r.BatchID, &status, &cancelledAt, &r.CancelReason,
		&createdAt,
	); err != nil {
		return models.Reservation{}, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("reservation %s has bad date %q: %w", r.ID, date, err)
	}
	r.Date = d
	r.Status = models.ReservationStatus(status)
	r.StartAt = time.Unix(startAt, 0).UTC()
	r.EndAt = time.Unix(endAt, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	if cancelledAt.Valid {
		t := time.Unix(cancelledAt.Int64, 0).UTC()
		r.CancelledAt = &t
	}
	return r, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	defer rows.Close()
	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}
