// Package slots turns a calendar date and a duration class into bookable candidate slots.
package slots

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/codr1/Spinergy/internal/models"
)

// Generate yields the slots of window on date, one every duration minutes from the
// opening minute while the slot still ends at or before closing. The sequence is pure and
// may be ranged over any number of times. A closed window yields nothing.
func Generate(date models.Date, duration DurationClass, window OperatingWindow) iter.Seq[CandidateSlot] {
	step := duration.Minutes()
	return func(yield func(CandidateSlot) bool) {
		if step <= 0 || window.IsClosed() {
			return
		}
		for current := window.OpenMinute; current+step <= window.CloseMinute; current += step {
			slot := CandidateSlot{
				Date:        date,
				StartMinute: current,
				EndMinute:   current + step,
				Duration:    duration,
			}
			if !yield(slot) {
				return
			}
		}
	}
}

// Generator binds slot generation to the club's weekly windows and duration classes.
type Generator struct {
	windows   WeeklyWindows
	durations []DurationClass
}

func NewGenerator(windows WeeklyWindows, durations []DurationClass) *Generator {
	ds := slices.Clone(durations)
	slices.Sort(ds)
	return &Generator{windows: windows, durations: slices.Compact(ds)}
}

func (g *Generator) Durations() []DurationClass {
	return slices.Clone(g.durations)
}

func (g *Generator) Window(date models.Date) OperatingWindow {
	return g.windows.For(date)
}

// DurationClass validates minutes against the configured granularities.
func (g *Generator) DurationClass(minutes int) (DurationClass, error) {
	d := DurationClass(minutes)
	if !slices.Contains(g.durations, d) {
		allowed := make([]string, len(g.durations))
		for i, c := range g.durations {
			allowed[i] = fmt.Sprint(c.Minutes())
		}
		return 0, models.InvalidRequest("duration", "must be one of "+strings.Join(allowed, ", "))
	}
	return d, nil
}

// Slots generates the candidate slots for date using its weekday window.
func (g *Generator) Slots(date models.Date, minutes int) (iter.Seq[CandidateSlot], error) {
	d, err := g.DurationClass(minutes)
	if err != nil {
		return nil, err
	}
	return Generate(date, d, g.Window(date)), nil
}

// ResolveStart maps a displayed start time to the raw minute of a slot on window's grid.
// Times already written past 24:00 are taken as raw offsets. Otherwise the same-day reading
// wins and the next-day reading is tried second, so "01:00" in a 14:00-26:00 window
// resolves to minute 1500.
func ResolveStart(window OperatingWindow, duration DurationClass, raw string) (int, error) {
	minute, err := models.ParseClock(raw)
	if err != nil {
		return 0, models.InvalidRequest("start_time", err.Error())
	}
	candidates := []int{minute}
	if minute < models.MinutesPerDay {
		candidates = append(candidates, minute+models.MinutesPerDay)
	}
	for _, c := range candidates {
		if window.Fits(c, duration) {
			return c, nil
		}
	}
	return 0, models.InvalidRequest("start_time", "is not a bookable slot for this date and duration")
}
