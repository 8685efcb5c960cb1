package slots

import (
	"fmt"
	"time"

	"github.com/codr1/Spinergy/internal/models"
)

// DurationClass is a slot length in minutes. It is also the generation step, so every
// duration class forms an independent grid.
type DurationClass int

func (d DurationClass) Minutes() int {
	return int(d)
}

func (d DurationClass) Duration() time.Duration {
	return time.Duration(d) * time.Minute
}

// CandidateSlot is a derived, unpersisted slot. Start and end are raw minute offsets from
// the date's midnight and may exceed 1440.
type CandidateSlot struct {
	Date        models.Date
	StartMinute int
	EndMinute   int
	Duration    DurationClass
}

func (s CandidateSlot) StartTime() string {
	return models.FormatClock(s.StartMinute)
}

func (s CandidateSlot) EndTime() string {
	return models.FormatClock(s.EndMinute)
}

func (s CandidateSlot) StartsNextDay() bool {
	return s.StartMinute >= models.MinutesPerDay
}

func (s CandidateSlot) EndsNextDay() bool {
	return s.EndMinute >= models.MinutesPerDay
}

// Label is the 12-hour display of the start, tagged when it falls on the next calendar day.
func (s CandidateSlot) Label() string {
	label := models.FormatClock12(s.StartMinute)
	if s.StartsNextDay() {
		label += " (Next Day)"
	}
	return label
}

// Range renders "h:MM PM - h:MM AM" for customer messages.
func (s CandidateSlot) Range() string {
	return fmt.Sprintf("%s - %s", models.FormatClock12(s.StartMinute), models.FormatClock12(s.EndMinute))
}

func (s CandidateSlot) StartAt(loc *time.Location) time.Time {
	return s.Date.At(s.StartMinute, loc)
}

func (s CandidateSlot) EndAt(loc *time.Location) time.Time {
	return s.Date.At(s.EndMinute, loc)
}

func (s CandidateSlot) Key(resourceID string) SlotKey {
	return SlotKey{
		ResourceID:      resourceID,
		Date:            s.Date,
		StartMinute:     s.StartMinute,
		DurationMinutes: s.Duration.Minutes(),
	}
}

// SlotKey is the identity of a slot. Two slots are identical iff all four fields match.
type SlotKey struct {
	ResourceID      string
	Date            models.Date
	StartMinute     int
	DurationMinutes int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%d", k.ResourceID, k.Date, k.StartMinute, k.DurationMinutes)
}

// KeyOf returns the identity of an existing reservation.
func KeyOf(r models.Reservation) SlotKey {
	return SlotKey{
		ResourceID:      r.ResourceID,
		Date:            r.Date,
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
	}
}
