// Package booking is the only write path for reservations. The Guard serialises
// check-then-insert per slot identity and relies on the store's unique index as the
// cross-process backstop.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codr1/Spinergy/internal/availability"
	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/pricing"
	"github.com/codr1/Spinergy/internal/slots"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultMaxBatch     = 8
)

var tracer = otel.Tracer("spinergy/booking")

type Config struct {
	Resolver     *availability.Resolver
	Store        Store
	Pricing      pricing.Provider
	Events       events.Publisher
	Clock        clockwork.Clock
	StoreTimeout time.Duration
	MaxBatch     int
}

type Guard struct {
	resolver     *availability.Resolver
	store        Store
	pricing      pricing.Provider
	events       events.Publisher
	clock        clockwork.Clock
	locks        *KeyedMutex
	storeTimeout time.Duration
	maxBatch     int
}

func NewGuard(cfg Config) *Guard {
	g := &Guard{
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		pricing:      cfg.Pricing,
		events:       cfg.Events,
		clock:        cfg.Clock,
		locks:        NewKeyedMutex(),
		storeTimeout: cfg.StoreTimeout,
		maxBatch:     cfg.MaxBatch,
	}
	if g.clock == nil {
		g.clock = clockwork.NewRealClock()
	}
	if g.events == nil {
		g.events = events.Discard{}
	}
	if g.storeTimeout <= 0 {
		g.storeTimeout = defaultStoreTimeout
	}
	if g.maxBatch <= 0 {
		g.maxBatch = defaultMaxBatch
	}
	return g
}

// Availability loads the active reservations of a resource and annotates the slots of
// date for durationMinutes.
func (g *Guard) Availability(ctx context.Context, resourceID string, date models.Date, durationMinutes int) ([]availability.SlotAvailability, error) {
	if _, err := g.activeResource(ctx, resourceID); err != nil {
		return nil, err
	}
	existing, err := g.reservations(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return g.resolver.Resolve(resourceID, date, durationMinutes, existing, g.clock.Now())
}

// Submit books a single slot. It returns a ConflictError when the slot identity is taken,
// an InvalidRequestError for bad input and an InfrastructureError when the store fails.
func (g *Guard) Submit(ctx context.Context, req SlotRequest) (models.Reservation, error) {
	result, err := g.SubmitBatch(ctx, BatchRequest{
		OwnerRef: req.OwnerRef,
		Customer: req.Customer,
		Slots:    []SlotSpec{req.SlotSpec},
	})
	if err != nil {
		return models.Reservation{}, err
	}
	slot := result.Results[0]
	if slot.Err != nil {
		return models.Reservation{}, slot.Err
	}
	return *slot.Reservation, nil
}

// SubmitBatch books every slot independently. Earlier successes are kept when a later
// slot fails; each slot's outcome is reported in submission order. The returned error is
// only set when the request as a whole is malformed.
func (g *Guard) SubmitBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := validateBatch(req, g.maxBatch); err != nil {
		return BatchResult{}, err
	}

	ctx, span := tracer.Start(ctx, "booking.submit_batch", trace.WithAttributes(
		attribute.Int("booking.slots", len(req.Slots)),
	))
	defer span.End()

	batchID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("batch_id", batchID).Str("owner_ref", req.OwnerRef).Logger()

	result := BatchResult{BatchID: batchID, Results: make([]SlotResult, len(req.Slots))}
	for i, item := range req.Slots {
		r, err := g.submitOne(ctx, item, req, batchID)
		slot := SlotResult{Index: i, Request: item, Outcome: OutcomeOf(err), Err: err}
		if err == nil {
			slot.Reservation = &r
		}
		result.Results[i] = slot

		event := logger.Info()
		if slot.Outcome == OutcomeError {
			event = logger.Error().Err(err)
		} else if err != nil {
			event = logger.Warn().Err(err)
		}
		event.
			Str("resource_id", item.ResourceID).
			Str("date", item.Date.String()).
			Str("start_time", item.StartTime).
			Int("duration_minutes", item.DurationMinutes).
			Str("outcome", string(slot.Outcome)).
			Msg("Booking slot processed")
	}

	span.SetAttributes(
		attribute.Int("booking.booked", result.Count(OutcomeBooked)),
		attribute.Int("booking.conflicts", result.Count(OutcomeConflict)),
	)
	g.publishCreated(ctx, result)
	return result, nil
}

func validateBatch(req BatchRequest, maxBatch int) error {
	if strings.TrimSpace(req.OwnerRef) == "" {
		return models.InvalidRequest("owner_ref", "is required")
	}
	if err := req.Customer.Validate(); err != nil {
		return err
	}
	if len(req.Slots) == 0 {
		return models.InvalidRequest("slots", "must contain at least one slot")
	}
	if len(req.Slots) > maxBatch {
		return models.InvalidRequest("slots", fmt.Sprintf("must contain at most %d slots", maxBatch))
	}
	return nil
}

func (g *Guard) submitOne(ctx context.Context, item SlotSpec, req BatchRequest, batchID string) (models.Reservation, error) {
	ctx, span := tracer.Start(ctx, "booking.submit", trace.WithAttributes(
		attribute.String("resource_id", item.ResourceID),
		attribute.String("date", item.Date.String()),
		attribute.String("start_time", item.StartTime),
		attribute.Int("duration_minutes", item.DurationMinutes),
	))
	defer span.End()

	r, err := g.claim(ctx, item, req, batchID)
	if err != nil {
		span.RecordError(err)
		if OutcomeOf(err) == OutcomeError {
			span.SetStatus(codes.Error, err.Error())
		}
		return models.Reservation{}, err
	}
	span.SetAttributes(attribute.String("reservation_id", r.ID))
	return r, nil
}

func (g *Guard) claim(ctx context.Context, item SlotSpec, req BatchRequest, batchID string) (models.Reservation, error) {
	if _, err := g.activeResource(ctx, item.ResourceID); err != nil {
		return models.Reservation{}, err
	}

	now := g.clock.Now()
	slot, err := g.resolver.Candidate(availability.Proposal{
		ResourceID:      item.ResourceID,
		Date:            item.Date,
		StartTime:       item.StartTime,
		DurationMinutes: item.DurationMinutes,
	}, now)
	if err != nil {
		return models.Reservation{}, err
	}

	key := slot.Key(item.ResourceID)
	unlock := g.locks.Lock(g.lockKey(key))
	defer unlock()

	// Re-read under the lock: the store, not any earlier availability view, decides.
	existing, err := g.reservations(ctx, item.ResourceID, item.Date)
	if err != nil {
		return models.Reservation{}, err
	}
	if _, taken := availability.Blocking(key, existing, g.resolver.Policy()); taken {
		return models.Reservation{}, conflictFor(key)
	}

	quote, err := g.pricing.Price(ctx, item.ResourceID, slot.Duration.Minutes(), item.Coaching)
	if err != nil {
		return models.Reservation{}, models.Infrastructure("price slot", err)
	}

	r := newReservation(slot, item, req, batchID, quote, g.resolver.Location(), now)
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	if err := g.store.Insert(storeCtx, r, g.resolver.Policy() == availability.PolicyOverlap); err != nil {
		return models.Reservation{}, classify("insert reservation", err)
	}
	return r, nil
}

// lockKey scopes the in-process lock to the conflict key of the active policy.
func (g *Guard) lockKey(key slots.SlotKey) string {
	if g.resolver.Policy() == availability.PolicyOverlap {
		return key.ResourceID + "|" + key.Date.String()
	}
	return key.String()
}

func newReservation(slot slots.CandidateSlot, item SlotSpec, req BatchRequest, batchID string, quote pricing.Quote, loc *time.Location, now time.Time) models.Reservation {
	return models.Reservation{
		ID:              uuid.NewString(),
		ResourceID:      item.ResourceID,
		Date:            slot.Date,
		StartMinute:     slot.StartMinute,
		EndMinute:       slot.EndMinute,
		DurationMinutes: slot.Duration.Minutes(),
		StartAt:         slot.StartAt(loc),
		EndAt:           slot.EndAt(loc),
		OwnerRef:        req.OwnerRef,
		Customer:        req.Customer,
		Coaching:        item.Coaching,
		PriceAmount:     quote.Amount,
		Currency:        quote.Currency,
		BatchID:         batchID,
		Status:          models.ReservationStatusConfirmed,
		CreatedAt:       now.UTC(),
	}
}

// Cancel moves the owner's reservation to the terminal cancelled state.
func (g *Guard) Cancel(ctx context.Context, id, ownerRef, reason string) (models.Reservation, error) {
	ctx, span := tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.String("reservation_id", id)))
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	current, err := g.store.Reservation(storeCtx, id)
	if err != nil {
		return models.Reservation{}, classify("load reservation", err)
	}
	if current.OwnerRef != ownerRef {
		return models.Reservation{}, models.InvalidRequest("owner_ref", "does not match the reservation")
	}

	unlock := g.locks.Lock(g.lockKey(slots.KeyOf(current)))
	defer unlock()

	cancelled, err := g.store.Cancel(storeCtx, id, strings.TrimSpace(reason), g.clock.Now())
	if err != nil {
		span.RecordError(err)
		return models.Reservation{}, classify("cancel reservation", err)
	}

	log.Ctx(ctx).Info().
		Str("reservation_id", id).
		Str("resource_id", cancelled.ResourceID).
		Str("date", cancelled.Date.String()).
		Int("start_minute", cancelled.StartMinute).
		Msg("Reservation cancelled")

	g.publish(ctx, events.New(events.TypeReservationCancelled, cancelled, g.clock.Now()))
	return cancelled, nil
}

func (g *Guard) publishCreated(ctx context.Context, result BatchResult) {
	booked := result.Booked()
	if len(booked) == 0 {
		return
	}
	batch := &events.Batch{ID: result.BatchID, Currency: booked[0].Currency}
	for _, r := range booked {
		batch.Slots = append(batch.Slots, events.BatchSlot{
			ReservationID: r.ID,
			ResourceID:    r.ResourceID,
			Date:          r.Date,
			StartMinute:   r.StartMinute,
			EndMinute:     r.EndMinute,
			PriceAmount:   r.PriceAmount,
		})
		batch.TotalPrice += r.PriceAmount
	}
	for i, r := range booked {
		e := events.New(events.TypeReservationCreated, r, g.clock.Now())
		e.BatchIndex = i
		if i == 0 {
			e.Batch = batch
		}
		g.publish(ctx, e)
	}
}

// publish never fails the caller: the reservation is already committed.
func (g *Guard) publish(ctx context.Context, e events.Event) {
	if err := g.events.Publish(ctx, e); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("event_id", e.ID).
			Str("event_type", string(e.Type)).
			Str("reservation_id", e.Reservation.ID).
			Msg("Failed to publish reservation event")
	}
}

func (g *Guard) activeResource(ctx context.Context, resourceID string) (models.Resource, error) {
	if strings.TrimSpace(resourceID) == "" {
		return models.Resource{}, models.InvalidRequest("resource_id", "is required")
	}
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	resource, err := g.store.Resource(storeCtx, resourceID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Resource{}, models.InvalidRequest("resource_id", "is unknown")
	}
	if err != nil {
		return models.Resource{}, classify("load resource", err)
	}
	if !resource.Active {
		return models.Resource{}, models.InvalidRequest("resource_id", "is not accepting bookings")
	}
	return resource, nil
}

func (g *Guard) reservations(ctx context.Context, resourceID string, date models.Date) ([]models.Reservation, error) {
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	existing, err := g.store.Reservations(storeCtx, resourceID, date)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	return existing, nil
}

func conflictFor(key slots.SlotKey) models.ConflictError {
	return models.ConflictError{
		ResourceID:      key.ResourceID,
		Date:            key.Date,
		StartMinute:     key.StartMinute,
		DurationMinutes: key.DurationMinutes,
	}
}

// classify passes domain errors through and wraps everything else, timeouts included,
// as a retryable InfrastructureError.
func classify(op string, err error) error {
	if isConflict(err) || isInvalid(err) || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInfrastructure) {
		return err
	}
	return models.Infrastructure(op, err)
}

func isConflict(err error) bool {
	return errors.Is(err, models.ErrConflict)
}

func isInvalid(err error) bool {
	return errors.Is(err, models.ErrInvalidRequest) || errors.Is(err, models.ErrNotFound)
}
