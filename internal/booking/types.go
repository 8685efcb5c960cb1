package booking

import (
	"context"
	"time"

	"github.com/codr1/Spinergy/internal/models"
)

// Store is the reservation store the guard writes through. Insert must enforce slot
// uniqueness atomically and report a duplicate as models.ConflictError.
type Store interface {
	Reservations(ctx context.Context, resourceID string, date models.Date) ([]models.Reservation, error)
	Insert(ctx context.Context, r models.Reservation, overlap bool) error
	Reservation(ctx context.Context, id string) (models.Reservation, error)
	Cancel(ctx context.Context, id, reason string, at time.Time) (models.Reservation, error)
	Resource(ctx context.Context, id string) (models.Resource, error)
}

// SlotSpec is one slot of a submission.
type SlotSpec struct {
	ResourceID      string      `json:"resourceId"`
	Date            models.Date `json:"date"`
	StartTime       string      `json:"startTime"`
	DurationMinutes int         `json:"durationMinutes"`
	Coaching        bool        `json:"coaching"`
}

type SlotRequest struct {
	SlotSpec
	OwnerRef string
	Customer models.Customer
}

type BatchRequest struct {
	OwnerRef string
	Customer models.Customer
	Slots    []SlotSpec
}

type Outcome string

const (
	OutcomeBooked   Outcome = "booked"
	OutcomeConflict Outcome = "conflict"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeError    Outcome = "error"
)

// OutcomeOf classifies a per-slot error.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeBooked
	case isConflict(err):
		return OutcomeConflict
	case isInvalid(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

type SlotResult struct {
	Index       int
	Request     SlotSpec
	Outcome     Outcome
	Reservation *models.Reservation
	Err         error
}

type BatchResult struct {
	BatchID string
	Results []SlotResult
}

// Booked returns the reservations created by the batch in submission order.
func (b BatchResult) Booked() []models.Reservation {
	var out []models.Reservation
	for _, r := range b.Results {
		if r.Reservation != nil {
			out = append(out, *r.Reservation)
		}
	}
	return out
}

// Count returns how many slots ended with outcome.
func (b BatchResult) Count(outcome Outcome) int {
	n := 0
	for _, r := range b.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}
