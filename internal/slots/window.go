package slots

import (
	"fmt"

	"github.com/codr1/Spinergy/internal/models"
)

// OperatingWindow is the bookable range of a day expressed as continuous minute offsets
// from that day's midnight. CloseMinute may exceed 1440 when the club closes after midnight.
type OperatingWindow struct {
	OpenMinute  int
	CloseMinute int
}

// NewOperatingWindow parses HH:MM bounds. The close bound may use hours past 23
// ("26:00") to roll over into the next calendar day.
func NewOperatingWindow(opensAt, closesAt string) (OperatingWindow, error) {
	open, err := models.ParseClock(opensAt)
	if err != nil {
		return OperatingWindow{}, fmt.Errorf("opens_at %w", err)
	}
	if open >= models.MinutesPerDay {
		return OperatingWindow{}, fmt.Errorf("opens_at must be before 24:00")
	}
	closeAt, err := models.ParseClock(closesAt)
	if err != nil {
		return OperatingWindow{}, fmt.Errorf("closes_at %w", err)
	}
	return OperatingWindow{OpenMinute: open, CloseMinute: closeAt}, nil
}

// IsClosed reports a window that cannot hold any slot. Generation treats it as a valid
// "club closed" state.
func (w OperatingWindow) IsClosed() bool {
	return w.CloseMinute <= w.OpenMinute
}

// Fits reports whether [start, start+duration) lies on the window's grid for duration.
func (w OperatingWindow) Fits(start int, duration DurationClass) bool {
	d := duration.Minutes()
	if d <= 0 || w.IsClosed() {
		return false
	}
	if start < w.OpenMinute || start+d > w.CloseMinute {
		return false
	}
	return (start-w.OpenMinute)%d == 0
}

func (w OperatingWindow) OpensAt() string {
	return models.FormatClock(w.OpenMinute)
}

func (w OperatingWindow) ClosesAt() string {
	return models.FormatClock(w.CloseMinute)
}

// ClosesNextDay reports whether the window rolls past midnight.
func (w OperatingWindow) ClosesNextDay() bool {
	return w.CloseMinute > models.MinutesPerDay
}

// WeeklyWindows resolves the operating window for a date by ISO weekday, falling back to
// a uniform default.
type WeeklyWindows struct {
	Default OperatingWindow
	ByDay   map[int]OperatingWindow // ISO weekday: Monday=1 .. Sunday=7
}

// UniformWindows applies the same window to every day.
func UniformWindows(w OperatingWindow) WeeklyWindows {
	return WeeklyWindows{Default: w}
}

func (ww WeeklyWindows) For(date models.Date) OperatingWindow {
	if w, ok := ww.ByDay[date.ISOWeekday()]; ok {
		return w
	}
	return ww.Default
}
