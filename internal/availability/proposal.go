package availability

import (
	"time"

	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/slots"
)

const defaultHorizonDays = 7

// Proposal is a prospective reservation as submitted by a customer.
type Proposal struct {
	ResourceID      string
	Date            models.Date
	StartTime       string
	DurationMinutes int
}

type Config struct {
	Policy      Policy
	Location    *time.Location
	HorizonDays int
}

// Resolver applies the club's generator, policy and booking horizon.
type Resolver struct {
	generator   *slots.Generator
	policy      Policy
	loc         *time.Location
	horizonDays int
}

func NewResolver(generator *slots.Generator, cfg Config) *Resolver {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyPerDuration
	}
	return &Resolver{generator: generator, policy: policy, loc: loc, horizonDays: horizon}
}

func (r *Resolver) Policy() Policy {
	return r.policy
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) Generator() *slots.Generator {
	return r.generator
}

// BookableDates lists today and the following dates inside the horizon, in club time.
func (r *Resolver) BookableDates(now time.Time) []models.Date {
	today := models.DateOf(now.In(r.loc))
	dates := make([]models.Date, 0, r.horizonDays)
	for i := 0; i < r.horizonDays; i++ {
		dates = append(dates, today.AddDays(i))
	}
	return dates
}

// CheckHorizon rejects dates before today or at or beyond today plus the horizon.
// Today is the calendar date in the club zone, so after midnight the previous
// operating day's late slots are no longer bookable.
func (r *Resolver) CheckHorizon(date models.Date, now time.Time) error {
	today := models.DateOf(now.In(r.loc))
	if date.Before(today) {
		return models.InvalidRequest("date", "is in the past")
	}
	if !date.Before(today.AddDays(r.horizonDays)) {
		return models.InvalidRequest("date", "is outside the booking horizon")
	}
	return nil
}

// Resolve annotates the slots of date for resourceID.
func (r *Resolver) Resolve(resourceID string, date models.Date, durationMinutes int, existing []models.Reservation, now time.Time) ([]SlotAvailability, error) {
	duration, err := r.generator.DurationClass(durationMinutes)
	if err != nil {
		return nil, err
	}
	if err := r.CheckHorizon(date, now); err != nil {
		return nil, err
	}
	return Resolve(resourceID, date, duration, r.generator.Window(date), existing, Options{
		Policy:   r.policy,
		Now:      now,
		Location: r.loc,
	}), nil
}

// ValidateProposal resolves p onto the slot grid and checks it against existing. It returns
// the matching candidate slot, an InvalidRequestError or a ConflictError.
func (r *Resolver) ValidateProposal(p Proposal, existing []models.Reservation, now time.Time) (slots.CandidateSlot, error) {
	slot, err := r.Candidate(p, now)
	if err != nil {
		return slots.CandidateSlot{}, err
	}
	if _, taken := Blocking(slot.Key(p.ResourceID), existing, r.policy); taken {
		return slots.CandidateSlot{}, models.ConflictError{
			ResourceID:      p.ResourceID,
			Date:            slot.Date,
			StartMinute:     slot.StartMinute,
			DurationMinutes: slot.Duration.Minutes(),
		}
	}
	return slot, nil
}

// Candidate resolves p onto the slot grid without consulting reservations.
func (r *Resolver) Candidate(p Proposal, now time.Time) (slots.CandidateSlot, error) {
	if p.ResourceID == "" {
		return slots.CandidateSlot{}, models.InvalidRequest("resource_id", "is required")
	}
	if p.Date.IsZero() {
		return slots.CandidateSlot{}, models.InvalidRequest("date", "is required")
	}
	duration, err := r.generator.DurationClass(p.DurationMinutes)
	if err != nil {
		return slots.CandidateSlot{}, err
	}
	if err := r.CheckHorizon(p.Date, now); err != nil {
		return slots.CandidateSlot{}, err
	}
	window := r.generator.Window(p.Date)
	if window.IsClosed() {
		return slots.CandidateSlot{}, models.InvalidRequest("date", "has no bookable slots")
	}
	start, err := slots.ResolveStart(window, duration, p.StartTime)
	if err != nil {
		return slots.CandidateSlot{}, err
	}
	slot := slots.CandidateSlot{
		Date:        p.Date,
		StartMinute: start,
		EndMinute:   start + duration.Minutes(),
		Duration:    duration,
	}
	if slot.StartAt(r.loc).Before(now) {
		return slots.CandidateSlot{}, models.InvalidRequest("start_time", "has already passed")
	}
	return slot, nil
}
