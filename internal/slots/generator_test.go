package slots

import (
	"errors"
	"slices"
	"testing"

	"github.com/codr1/Spinergy/internal/models"
)

func mustWindow(t *testing.T, opensAt, closesAt string) OperatingWindow {
	t.Helper()
	w, err := NewOperatingWindow(opensAt, closesAt)
	if err != nil {
		t.Fatalf("NewOperatingWindow(%q, %q): %v", opensAt, closesAt, err)
	}
	return w
}

func mustDate(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", raw, err)
	}
	return d
}

func TestGenerate_SixtyMinuteEveningWindow(t *testing.T) {
	window := mustWindow(t, "16:00", "24:00")
	date := mustDate(t, "2025-06-01")

	got := slices.Collect(Generate(date, 60, window))
	if len(got) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(got))
	}

	wantStarts := []string{"16:00", "17:00", "18:00", "19:00", "20:00", "21:00", "22:00", "23:00"}
	for i, slot := range got {
		if slot.StartTime() != wantStarts[i] {
			t.Fatalf("slot %d start = %s, want %s", i, slot.StartTime(), wantStarts[i])
		}
		if slot.EndMinute-slot.StartMinute != 60 {
			t.Fatalf("slot %d length = %d", i, slot.EndMinute-slot.StartMinute)
		}
	}

	last := got[len(got)-1]
	if last.EndMinute != 1440 {
		t.Fatalf("last slot end minute = %d, want 1440", last.EndMinute)
	}
	if last.EndTime() != "00:00" || !last.EndsNextDay() {
		t.Fatalf("last slot end = %s next_day=%t, want 00:00 next day", last.EndTime(), last.EndsNextDay())
	}
	if last.StartsNextDay() {
		t.Fatalf("23:00 slot must not be labelled next day")
	}
}

func TestGenerate_ThirtyMinuteEveningWindow(t *testing.T) {
	window := mustWindow(t, "16:00", "24:00")
	got := slices.Collect(Generate(mustDate(t, "2025-06-01"), 30, window))
	if len(got) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartMinute-got[i-1].StartMinute != 30 {
			t.Fatalf("slot %d not spaced by 30 minutes", i)
		}
	}
}

func TestGenerate_StrictlyIncreasingAndExactLength(t *testing.T) {
	windows := []OperatingWindow{
		mustWindow(t, "14:00", "26:00"),
		mustWindow(t, "12:00", "27:00"),
		mustWindow(t, "08:15", "21:45"),
		mustWindow(t, "00:00", "24:00"),
	}
	for _, window := range windows {
		for _, duration := range []DurationClass{15, 30, 45, 60, 90} {
			prev := -1
			for slot := range Generate(mustDate(t, "2025-03-30"), duration, window) {
				if slot.StartMinute <= prev {
					t.Fatalf("window %+v duration %d: start %d not after %d", window, duration, slot.StartMinute, prev)
				}
				if slot.EndMinute-slot.StartMinute != duration.Minutes() {
					t.Fatalf("window %+v duration %d: bad length", window, duration)
				}
				if slot.EndMinute > window.CloseMinute {
					t.Fatalf("window %+v duration %d: slot ends after close", window, duration)
				}
				prev = slot.StartMinute
			}
		}
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	window := mustWindow(t, "14:00", "26:00")
	date := mustDate(t, "2025-06-02")
	seq := Generate(date, 30, window)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	third := slices.Collect(Generate(date, 30, window))
	if !slices.Equal(first, second) || !slices.Equal(first, third) {
		t.Fatalf("generation is not repeatable")
	}
}

func TestGenerate_ClosedWindowIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		window OperatingWindow
	}{
		{name: "equal_bounds", window: OperatingWindow{OpenMinute: 600, CloseMinute: 600}},
		{name: "inverted_bounds", window: OperatingWindow{OpenMinute: 900, CloseMinute: 600}},
		{name: "shorter_than_duration", window: OperatingWindow{OpenMinute: 600, CloseMinute: 630}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := slices.Collect(Generate(mustDate(t, "2025-06-01"), 60, test.window))
			if len(got) != 0 {
				t.Fatalf("expected no slots, got %d", len(got))
			}
		})
	}
}

func TestGenerate_PastMidnightUsesRawMinutes(t *testing.T) {
	window := mustWindow(t, "14:00", "26:00")
	got := slices.Collect(Generate(mustDate(t, "2025-06-02"), 60, window))
	if len(got) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(got))
	}
	last := got[len(got)-1]
	if last.StartMinute != 1500 || last.StartTime() != "01:00" || !last.StartsNextDay() {
		t.Fatalf("unexpected last slot: %+v (%s)", last, last.StartTime())
	}
	if last.Label() != "1:00 AM (Next Day)" {
		t.Fatalf("label = %q", last.Label())
	}
	// Same displayed time, different logical day: distinct identities.
	sameDay := CandidateSlot{Date: last.Date, StartMinute: 60, EndMinute: 120, Duration: 60}
	if sameDay.Key("table_a") == last.Key("table_a") {
		t.Fatalf("01:00 and 01:00 (next day) must not share a key")
	}
}

func TestGenerate_StopsWhenYieldReturnsFalse(t *testing.T) {
	window := mustWindow(t, "14:00", "26:00")
	count := 0
	for range Generate(mustDate(t, "2025-06-02"), 30, window) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("expected early stop at 3, got %d", count)
	}
}

func TestGenerator_RejectsUnknownDuration(t *testing.T) {
	gen := NewGenerator(UniformWindows(mustWindow(t, "16:00", "24:00")), []DurationClass{60, 30, 60})
	if got := gen.Durations(); !slices.Equal(got, []DurationClass{30, 60}) {
		t.Fatalf("durations = %v", got)
	}

	_, err := gen.Slots(mustDate(t, "2025-06-01"), 45)
	if !errors.Is(err, models.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestGenerator_UsesWeekdayWindow(t *testing.T) {
	weekday := mustWindow(t, "14:00", "26:00")
	weekend := mustWindow(t, "12:00", "27:00")
	gen := NewGenerator(WeeklyWindows{
		Default: weekday,
		ByDay:   map[int]OperatingWindow{6: weekend, 7: weekend},
	}, []DurationClass{30, 60})

	// 2025-06-01 is a Sunday, 2025-06-02 a Monday.
	sunday, err := gen.Slots(mustDate(t, "2025-06-01"), 60)
	if err != nil {
		t.Fatalf("sunday slots: %v", err)
	}
	if n := len(slices.Collect(sunday)); n != 15 {
		t.Fatalf("sunday: expected 15 slots, got %d", n)
	}
	monday, err := gen.Slots(mustDate(t, "2025-06-02"), 60)
	if err != nil {
		t.Fatalf("monday slots: %v", err)
	}
	if n := len(slices.Collect(monday)); n != 12 {
		t.Fatalf("monday: expected 12 slots, got %d", n)
	}
}

func TestResolveStart(t *testing.T) {
	window := mustWindow(t, "14:00", "26:00")
	tests := []struct {
		name     string
		raw      string
		duration DurationClass
		want     int
		wantErr  bool
	}{
		{name: "same_day", raw: "18:00", duration: 60, want: 1080},
		{name: "half_hour", raw: "18:30", duration: 30, want: 1110},
		{name: "after_midnight", raw: "01:00", duration: 60, want: 1500},
		{name: "explicit_raw", raw: "25:30", duration: 30, want: 1530},
		{name: "off_grid", raw: "18:30", duration: 60, wantErr: true},
		{name: "before_open", raw: "13:00", duration: 60, wantErr: true},
		{name: "past_close", raw: "02:00", duration: 60, wantErr: true},
		{name: "garbage", raw: "six pm", duration: 60, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ResolveStart(window, test.duration, test.raw)
			if test.wantErr {
				if !errors.Is(err, models.ErrInvalidRequest) {
					t.Fatalf("expected invalid request, got %d, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Fatalf("ResolveStart(%q) = %d, want %d", test.raw, got, test.want)
			}
		})
	}
}

func TestNewOperatingWindow_RejectsBadInput(t *testing.T) {
	for _, bounds := range [][2]string{{"25:00", "26:00"}, {"9am", "17:00"}, {"09:00", "17:75"}} {
		if _, err := NewOperatingWindow(bounds[0], bounds[1]); err == nil {
			t.Fatalf("expected error for %v", bounds)
		}
	}
}
