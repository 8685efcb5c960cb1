package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
)

const (
	DefaultReminderHoursBefore = 24
	reminderJobName            = "reservation_reminders"
	reminderJobTimeout         = 2 * time.Minute
)

// UpcomingSource lists confirmed reservations whose start lies in [from, to).
type UpcomingSource interface {
	ReservationsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error)
}

type ReminderConfig struct {
	Store       UpcomingSource
	Events      events.Publisher
	Clock       clockwork.Clock
	HoursBefore int
	// Window is the job period. Each run covers the reservations starting one window past
	// the reminder lead time.
	Window time.Duration
}

// ReminderJob emits a reminder_due event for every reservation entering the lead window.
// Notifications dedupe reminders per reservation, so overlapping windows are harmless.
type ReminderJob struct {
	store       UpcomingSource
	events      events.Publisher
	clock       clockwork.Clock
	hoursBefore int
	window      time.Duration
}

func NewReminderJob(cfg ReminderConfig) (*ReminderJob, error) {
	if cfg.Store == nil {
		return nil, errors.New("reminder job requires a reservation store")
	}
	if cfg.Events == nil {
		return nil, errors.New("reminder job requires an event publisher")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.HoursBefore <= 0 {
		cfg.HoursBefore = DefaultReminderHoursBefore
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &ReminderJob{
		store:       cfg.Store,
		events:      cfg.Events,
		clock:       cfg.Clock,
		hoursBefore: cfg.HoursBefore,
		window:      cfg.Window,
	}, nil
}

// Run publishes reminders for one window and reports how many it published.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	now := j.clock.Now()
	windowStart := now.Add(time.Duration(j.hoursBefore) * time.Hour)
	windowEnd := windowStart.Add(j.window)

	reservations, err := j.store.ReservationsStartingBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return 0, fmt.Errorf("load upcoming reservations: %w", err)
	}

	published := 0
	for _, r := range reservations {
		if err := j.events.Publish(ctx, events.New(events.TypeReminderDue, r, now)); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("reservation_id", r.ID).Msg("Failed to publish reminder")
			continue
		}
		published++
	}
	return published, nil
}

// RegisterReminderJob schedules the reminder job on svc.
func RegisterReminderJob(svc *Service, job *ReminderJob, cronExpr string) error {
	if svc == nil {
		return ErrNotInitialized
	}
	_, err := svc.Register(JobSpec{
		Name:    reminderJobName,
		Cron:    cronExpr,
		Timeout: reminderJobTimeout,
		Task: func(ctx context.Context) error {
			count, err := job.Run(ctx)
			if count > 0 {
				log.Ctx(ctx).Info().Int("reminders", count).Int("hours_before", job.hoursBefore).Msg("Reminders published")
			}
			return err
		},
	})
	if err != nil {
		return fmt.Errorf("add reservation reminder job: %w", err)
	}
	return nil
}
