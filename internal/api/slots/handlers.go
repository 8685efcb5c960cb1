// internal/api/slots/handlers.go
package slots

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/availability"
	"github.com/codr1/Spinergy/internal/models"
)

const slotsQueryTimeout = 5 * time.Second

// Source is satisfied by booking.Guard.
type Source interface {
	Availability(ctx context.Context, resourceID string, date models.Date, durationMinutes int) ([]availability.SlotAvailability, error)
}

var (
	source     Source
	sourceOnce sync.Once
)

type slotResponse struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	Label       string `json:"label"`
	Range       string `json:"range"`
	NextDay     bool   `json:"nextDay"`
	Available   bool   `json:"available"`
	Past        bool   `json:"past"`
}

type slotsResponse struct {
	ResourceID      string         `json:"resourceId"`
	Date            models.Date    `json:"date"`
	DurationMinutes int            `json:"durationMinutes"`
	Slots           []slotResponse `json:"slots"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s Source) {
	if s == nil {
		return
	}
	sourceOnce.Do(func() {
		source = s
	})
}

// GET /api/v1/slots?resource_id=table_a&date=2025-06-02&duration=60
func HandleListSlots(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if source == nil {
		logger.Error().Msg("Slot source not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	resourceID, err := apiutil.RequireField(query.Get("resource_id"), "resource_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.ParseDateField(query.Get("date"), "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	duration, err := apiutil.ParsePositiveIntField(query.Get("duration"), "duration")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), slotsQueryTimeout)
	defer cancel()

	annotated, err := source.Availability(ctx, resourceID, date, duration)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	resp := slotsResponse{
		ResourceID:      resourceID,
		Date:            date,
		DurationMinutes: duration,
		Slots:           make([]slotResponse, 0, len(annotated)),
	}
	for _, a := range annotated {
		resp.Slots = append(resp.Slots, slotResponse{
			StartTime:   a.Slot.StartTime(),
			EndTime:     a.Slot.EndTime(),
			StartMinute: a.Slot.StartMinute,
			EndMinute:   a.Slot.EndMinute,
			Label:       a.Slot.Label(),
			Range:       a.Slot.Range(),
			NextDay:     a.Slot.StartsNextDay(),
			Available:   a.Available,
			Past:        a.Past,
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write slots response")
	}
}
