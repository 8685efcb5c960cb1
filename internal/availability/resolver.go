// Package availability projects existing reservations onto generated slots.
package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/slots"
)

// Policy selects the conflict key used to decide whether a slot is taken.
type Policy string

const (
	// PolicyPerDuration treats every duration class as an independent grid: a slot is
	// taken only by a reservation with the exact same (resource, date, start, duration).
	PolicyPerDuration Policy = "per_duration"
	// PolicyOverlap marks a slot taken when any reservation for the same resource and
	// date intersects its minute interval, whatever its duration class.
	PolicyOverlap Policy = "overlap"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.TrimSpace(strings.ToLower(raw))) {
	case "", PolicyPerDuration:
		return PolicyPerDuration, nil
	case PolicyOverlap:
		return PolicyOverlap, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", raw)
	}
}

// SlotAvailability is a candidate slot annotated for display.
type SlotAvailability struct {
	Slot      slots.CandidateSlot
	Available bool
	Past      bool
}

// Options carries the inputs that are not part of the slot identity. Now and Location are
// injected so that resolution stays a pure function.
type Options struct {
	Policy   Policy
	Now      time.Time
	Location *time.Location
}

// Resolve partitions the slots of window into available and taken. A slot is taken when
// Blocking finds a matching active reservation for the resource. Slots that already
// started relative to opts.Now are reported as Past and unavailable.
func Resolve(resourceID string, date models.Date, duration slots.DurationClass, window slots.OperatingWindow, existing []models.Reservation, opts Options) []SlotAvailability {
	var out []SlotAvailability
	for slot := range slots.Generate(date, duration, window) {
		_, taken := Blocking(slot.Key(resourceID), existing, opts.Policy)
		past := !opts.Now.IsZero() && slot.StartAt(opts.Location).Before(opts.Now)
		out = append(out, SlotAvailability{
			Slot:      slot,
			Available: !taken && !past,
			Past:      past,
		})
	}
	return out
}

// Blocking returns the first active reservation that claims key under policy.
func Blocking(key slots.SlotKey, existing []models.Reservation, policy Policy) (models.Reservation, bool) {
	end := key.StartMinute + key.DurationMinutes
	for _, r := range existing {
		if !r.IsActive() || r.ResourceID != key.ResourceID || r.Date != key.Date {
			continue
		}
		switch policy {
		case PolicyOverlap:
			if r.Overlaps(key.StartMinute, end) {
				return r, true
			}
		default:
			if slots.KeyOf(r) == key {
				return r, true
			}
		}
	}
	return models.Reservation{}, false
}
