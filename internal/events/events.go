// Package events carries reservation lifecycle events from the booking guard to
// asynchronous consumers such as notifications.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Spinergy/internal/models"
)

type Type string

const (
	TypeReservationCreated   Type = "reservation.created"
	TypeReservationCancelled Type = "reservation.cancelled"
	TypeReminderDue          Type = "reservation.reminder_due"
)

var ErrBusFull = errors.New("event bus is full")

// BatchSlot summarises one booked slot of a multi-slot submission.
type BatchSlot struct {
	ReservationID string      `json:"reservationId"`
	ResourceID    string      `json:"resourceId"`
	Date          models.Date `json:"date"`
	StartMinute   int         `json:"startMinute"`
	EndMinute     int         `json:"endMinute"`
	PriceAmount   int64       `json:"priceAmount"`
}

// Batch is attached to the first created event of a submission so consumers can send
// one summary for the whole batch.
type Batch struct {
	ID         string      `json:"id"`
	Slots      []BatchSlot `json:"slots"`
	TotalPrice int64       `json:"totalPrice"`
	Currency   string      `json:"currency"`
}

type Event struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	OccurredAt  time.Time          `json:"occurredAt"`
	Reservation models.Reservation `json:"reservation"`
	// BatchIndex is the position of the reservation among the booked slots of its batch.
	BatchIndex int    `json:"batchIndex"`
	Batch      *Batch `json:"batch,omitempty"`
}

func New(t Type, r models.Reservation, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		OccurredAt:  at.UTC(),
		Reservation: r,
	}
}

// Publisher accepts events for asynchronous delivery. Implementations must not block on
// slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Handler func(ctx context.Context, e Event) error

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
