// internal/models/reservation.go
package models

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Resource is a bookable table.
type Resource struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	FullName     string `json:"fullName,omitempty"`
	Active       bool   `json:"active"`
	DisplayOrder int    `json:"displayOrder"`
}

// Customer is the contact a reservation notifies.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return InvalidRequest("customer.name", "is required")
	}
	if strings.TrimSpace(c.Email) == "" && strings.TrimSpace(c.Phone) == "" {
		return InvalidRequest("customer", "requires an email or phone")
	}
	return nil
}

// Reservation is a confirmed claim on one slot identity. Reservations are never deleted;
// cancellation moves them to a terminal status.
type Reservation struct {
	ID              string            `json:"id"`
	ResourceID      string            `json:"resourceId"`
	Date            Date              `json:"date"`
	StartMinute     int               `json:"startMinute"`
	EndMinute       int               `json:"endMinute"`
	DurationMinutes int               `json:"durationMinutes"`
	StartAt         time.Time         `json:"startAt"`
	EndAt           time.Time         `json:"endAt"`
	OwnerRef        string            `json:"ownerRef"`
	Customer        Customer          `json:"customer"`
	Coaching        bool              `json:"coaching"`
	PriceAmount     int64             `json:"priceAmount"`
	Currency        string            `json:"currency"`
	BatchID         string            `json:"batchId,omitempty"`
	Status          ReservationStatus `json:"status"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CancelReason    string            `json:"cancelReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// StartTime is the displayed HH:MM start, wrapped past midnight.
func (r Reservation) StartTime() string {
	return FormatClock(r.StartMinute)
}

// EndTime is the displayed HH:MM end, wrapped past midnight.
func (r Reservation) EndTime() string {
	return FormatClock(r.EndMinute)
}

func (r Reservation) IsActive() bool {
	return r.Status == ReservationStatusConfirmed
}

// Overlaps reports whether the half-open minute intervals of r and [start, end) intersect.
func (r Reservation) Overlaps(start, end int) bool {
	return start < r.EndMinute && r.StartMinute < end
}
