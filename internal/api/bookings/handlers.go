// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/booking"
	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/ratelimit"
)

const (
	// Covers a full batch of guarded inserts.
	submitTimeout       = 30 * time.Second
	bookingQueryTimeout = 5 * time.Second
)

// Guard is the write path; satisfied by booking.Guard.
type Guard interface {
	SubmitBatch(ctx context.Context, req booking.BatchRequest) (booking.BatchResult, error)
	Cancel(ctx context.Context, id, ownerRef, reason string) (models.Reservation, error)
}

type OwnerLister interface {
	ReservationsByOwner(ctx context.Context, ownerRef string, from models.Date) ([]models.Reservation, error)
}

type Config struct {
	Guard        Guard
	Reservations OwnerLister
	// Optional; nil disables submission throttling.
	Limiter    *ratelimit.Limiter
	TrustProxy bool
	Location   *time.Location
	Clock      clockwork.Clock
}

var (
	deps     Config
	depsOnce sync.Once
)

type submitRequest struct {
	OwnerRef string             `json:"ownerRef"`
	Customer models.Customer    `json:"customer"`
	Slots    []booking.SlotSpec `json:"slots"`
}

type slotOutcome struct {
	Index       int                 `json:"index"`
	Request     booking.SlotSpec    `json:"request"`
	Outcome     booking.Outcome     `json:"outcome"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
	Error       *apiutil.ErrorBody  `json:"error,omitempty"`
}

type submitResponse struct {
	BatchID   string        `json:"batchId"`
	Booked    int           `json:"booked"`
	Conflicts int           `json:"conflicts"`
	Results   []slotOutcome `json:"results"`
}

type cancelRequest struct {
	OwnerRef string `json:"ownerRef"`
	Reason   string `json:"reason"`
}

type reservationsResponse struct {
	Reservations []models.Reservation `json:"reservations"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(cfg Config) {
	if cfg.Guard == nil {
		return
	}
	depsOnce.Do(func() {
		if cfg.Clock == nil {
			cfg.Clock = clockwork.NewRealClock()
		}
		if cfg.Location == nil {
			cfg.Location = time.UTC
		}
		deps = cfg
	})
}

// POST /api/v1/bookings
func HandleSubmit(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if deps.Guard == nil {
		logger.Error().Msg("Booking guard not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req submitRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}

	if deps.Limiter != nil {
		ip := ratelimit.ClientIP(r, deps.TrustProxy)
		if d := deps.Limiter.Allow(req.OwnerRef, ip); !d.Allowed {
			ratelimit.LogDenied(r.Context(), req.OwnerRef, ip, d)
			apiutil.WriteError(w, r, apiutil.RateLimited(d.RetryAfter, d.Reason))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()

	result, err := deps.Guard.SubmitBatch(ctx, booking.BatchRequest{
		OwnerRef: strings.TrimSpace(req.OwnerRef),
		Customer: req.Customer,
		Slots:    req.Slots,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	resp := submitResponse{
		BatchID:   result.BatchID,
		Booked:    result.Count(booking.OutcomeBooked),
		Conflicts: result.Count(booking.OutcomeConflict),
		Results:   make([]slotOutcome, 0, len(result.Results)),
	}
	for _, slot := range result.Results {
		out := slotOutcome{
			Index:       slot.Index,
			Request:     slot.Request,
			Outcome:     slot.Outcome,
			Reservation: slot.Reservation,
		}
		if slot.Err != nil {
			body := apiutil.BodyFor(slot.Err)
			out.Error = &body
		}
		resp.Results = append(resp.Results, out)
	}

	status := submitStatus(result)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "2")
	}
	if err := apiutil.WriteJSON(w, status, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

// submitStatus is 201 when every slot was booked and 207 when only some were. A batch
// that booked nothing reports its single shared failure class, or 207 when they differ.
func submitStatus(result booking.BatchResult) int {
	total := len(result.Results)
	switch booked := result.Count(booking.OutcomeBooked); {
	case booked == total:
		return http.StatusCreated
	case booked > 0:
		return http.StatusMultiStatus
	}
	switch total {
	case result.Count(booking.OutcomeConflict):
		return http.StatusConflict
	case result.Count(booking.OutcomeInvalid):
		return http.StatusBadRequest
	case result.Count(booking.OutcomeError):
		return http.StatusServiceUnavailable
	default:
		return http.StatusMultiStatus
	}
}

// GET /api/v1/bookings?owner=...&from=YYYY-MM-DD
func HandleListByOwner(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if deps.Reservations == nil {
		logger.Error().Msg("Reservation store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	owner, err := apiutil.RequireField(query.Get("owner"), "owner")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	from := models.DateOf(deps.Clock.Now().In(deps.Location))
	if raw := query.Get("from"); raw != "" {
		if from, err = apiutil.ParseDateField(raw, "from"); err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	list, err := deps.Reservations.ReservationsByOwner(ctx, owner, from)
	if err != nil {
		apiutil.WriteError(w, r, models.Infrastructure("list owner reservations", err))
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, reservationsResponse{Reservations: withoutContact(list)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservations response")
	}
}

// withoutContact keeps the customer name only. Anyone holding an owner reference can
// list by it, so email and phone never leave through this route.
func withoutContact(list []models.Reservation) []models.Reservation {
	out := make([]models.Reservation, len(list))
	for i, res := range list {
		res.Customer = models.Customer{Name: res.Customer.Name}
		out[i] = res
	}
	return out
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if deps.Guard == nil {
		logger.Error().Msg("Booking guard not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.RequireField(r.PathValue("id"), "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req cancelRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}
	owner, err := apiutil.RequireField(req.OwnerRef, "ownerRef")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	cancelled, err := deps.Guard.Cancel(ctx, id, owner, req.Reason)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, cancelled); err != nil {
		logger.Error().Err(err).Msg("Failed to write cancellation response")
	}
}
