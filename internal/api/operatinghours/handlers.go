// internal/api/operatinghours/handlers.go
package operatinghours

import (
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/availability"
	"github.com/codr1/Spinergy/internal/models"
)

const dateQueryKey = "date"

var (
	resolver *availability.Resolver
	clock    clockwork.Clock
	initOnce sync.Once
)

type operatingHoursResponse struct {
	Date          models.Date `json:"date"`
	DayOfWeek     string      `json:"dayOfWeek"`
	IsClosed      bool        `json:"isClosed"`
	OpensAt       string      `json:"opensAt,omitempty"`
	ClosesAt      string      `json:"closesAt,omitempty"`
	ClosesNextDay bool        `json:"closesNextDay"`
}

type weekResponse struct {
	Timezone string                   `json:"timezone"`
	Days     []operatingHoursResponse `json:"days"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(r *availability.Resolver, c clockwork.Clock) {
	if r == nil {
		return
	}
	initOnce.Do(func() {
		resolver = r
		clock = c
		if clock == nil {
			clock = clockwork.NewRealClock()
		}
	})
}

// GET /api/v1/operating-hours?date=YYYY-MM-DD
//
// Without a date the response covers every bookable date.
func HandleOperatingHours(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if resolver == nil {
		logger.Error().Msg("Availability resolver not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	raw := r.URL.Query().Get(dateQueryKey)
	if raw == "" {
		days := make([]operatingHoursResponse, 0)
		for _, date := range resolver.BookableDates(clock.Now()) {
			days = append(days, hoursFor(date))
		}
		writeResponse(w, r, weekResponse{Timezone: resolver.Location().String(), Days: days})
		return
	}

	date, err := apiutil.ParseDateField(raw, dateQueryKey)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeResponse(w, r, hoursFor(date))
}

func hoursFor(date models.Date) operatingHoursResponse {
	window := resolver.Generator().Window(date)
	resp := operatingHoursResponse{
		Date:      date,
		DayOfWeek: date.WeekdayName(),
		IsClosed:  window.IsClosed(),
	}
	if resp.IsClosed {
		return resp
	}
	resp.OpensAt = window.OpensAt()
	resp.ClosesAt = window.ClosesAt()
	resp.ClosesNextDay = window.ClosesNextDay()
	return resp
}

func writeResponse(w http.ResponseWriter, r *http.Request, payload any) {
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write operating hours response")
	}
}
