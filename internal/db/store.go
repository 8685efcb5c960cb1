package db

import (
	"context"
	"time"

	"github.com/codr1/Spinergy/internal/models"
)

// Reservations returns the confirmed reservations of a resource on a date.
func (db *DB) Reservations(ctx context.Context, resourceID string, date models.Date) ([]models.Reservation, error) {
	return db.Queries.ListActiveReservations(ctx, resourceID, date)
}

// Insert stores r atomically. With overlap set, the insert also fails when any confirmed
// reservation for the same resource and date intersects r, whatever its duration.
func (db *DB) Insert(ctx context.Context, r models.Reservation, overlap bool) error {
	if !overlap {
		return db.Queries.InsertReservation(ctx, r)
	}
	return db.RunInTx(ctx, func(tx *DB) error {
		if err := tx.Queries.LockSlotRange(ctx, r.ResourceID, r.Date); err != nil {
			return err
		}
		return tx.Queries.InsertReservationIfFree(ctx, r)
	})
}

func (db *DB) Reservation(ctx context.Context, id string) (models.Reservation, error) {
	return db.Queries.GetReservation(ctx, id)
}

// Cancel moves a reservation to its terminal cancelled state and returns the stored row.
func (db *DB) Cancel(ctx context.Context, id, reason string, at time.Time) (models.Reservation, error) {
	var out models.Reservation
	err := db.RunInTx(ctx, func(tx *DB) error {
		changed, err := tx.Queries.CancelReservation(ctx, id, reason, at)
		if err != nil {
			return err
		}
		r, err := tx.Queries.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if !changed {
			return models.InvalidRequest("reservation", "is already cancelled")
		}
		out = r
		return nil
	})
	return out, err
}

func (db *DB) ReservationsByOwner(ctx context.Context, ownerRef string, from models.Date) ([]models.Reservation, error) {
	return db.Queries.ListReservationsByOwner(ctx, ownerRef, from)
}

func (db *DB) ReservationsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	return db.Queries.ListReservationsStartingBetween(ctx, from, to)
}

func (db *DB) Resource(ctx context.Context, id string) (models.Resource, error) {
	return db.Queries.GetResource(ctx, id)
}

func (db *DB) Resources(ctx context.Context) ([]models.Resource, error) {
	return db.Queries.ListResources(ctx, true)
}

func (db *DB) PricingRules(ctx context.Context) ([]models.PricingRule, error) {
	return db.Queries.ListPricingRules(ctx)
}
