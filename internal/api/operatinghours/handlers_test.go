package operatinghours

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/Spinergy/internal/availability"
	"github.com/codr1/Spinergy/internal/slots"
)

var karachi = time.FixedZone("PKT", 5*60*60)

func setupOperatingHoursTest(t *testing.T) {
	t.Helper()

	weekday := slots.OperatingWindow{OpenMinute: 14 * 60, CloseMinute: 26 * 60}
	weekend := slots.OperatingWindow{OpenMinute: 12 * 60, CloseMinute: 27 * 60}
	gen := slots.NewGenerator(slots.WeeklyWindows{
		Default: weekday,
		ByDay:   map[int]slots.OperatingWindow{6: weekend, 7: weekend},
	}, []slots.DurationClass{30, 60})
	r := availability.NewResolver(gen, availability.Config{Location: karachi})

	// Monday 2025-06-02 10:00 PKT
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 10, 0, 0, 0, karachi))

	resolver = nil
	clock = nil
	initOnce = sync.Once{}
	InitHandlers(r, fake)

	t.Cleanup(func() {
		resolver = nil
		clock = nil
		initOnce = sync.Once{}
	})
}

func TestHandleOperatingHoursForDate(t *testing.T) {
	setupOperatingHoursTest(t)

	rec := httptest.NewRecorder()
	HandleOperatingHours(rec, httptest.NewRequest(http.MethodGet, "/api/v1/operating-hours?date=2025-06-07", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp operatingHoursResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DayOfWeek != "Saturday" || resp.OpensAt != "12:00" || resp.ClosesAt != "03:00" || !resp.ClosesNextDay {
		t.Fatalf("unexpected saturday hours: %+v", resp)
	}
}

func TestHandleOperatingHoursWeek(t *testing.T) {
	setupOperatingHoursTest(t)

	rec := httptest.NewRecorder()
	HandleOperatingHours(rec, httptest.NewRequest(http.MethodGet, "/api/v1/operating-hours", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp weekResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Days) != 7 {
		t.Fatalf("expected 7 bookable days, got %d", len(resp.Days))
	}
	if resp.Days[0].Date.String() != "2025-06-02" || resp.Days[0].ClosesAt != "02:00" {
		t.Fatalf("unexpected first day: %+v", resp.Days[0])
	}
	if resp.Days[6].Date.String() != "2025-06-08" || resp.Days[6].OpensAt != "12:00" {
		t.Fatalf("unexpected last day: %+v", resp.Days[6])
	}
}

func TestHandleOperatingHoursInvalidDate(t *testing.T) {
	setupOperatingHoursTest(t)

	rec := httptest.NewRecorder()
	HandleOperatingHours(rec, httptest.NewRequest(http.MethodGet, "/api/v1/operating-hours?date=06/02/2025", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleOperatingHoursNotInitialized(t *testing.T) {
	resolver = nil
	initOnce = sync.Once{}

	rec := httptest.NewRecorder()
	HandleOperatingHours(rec, httptest.NewRequest(http.MethodGet, "/api/v1/operating-hours", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
