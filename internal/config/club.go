package config

import (
	"fmt"
	"strings"
	_ "time/tzdata"

	"github.com/codr1/Spinergy/internal/slots"
)

var weekdays = map[string]int{
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
	"sunday":    7,
}

// WeeklyWindows converts the configured hours into per-weekday operating windows.
func (c ClubConfig) WeeklyWindows() (slots.WeeklyWindows, error) {
	def, err := slots.NewOperatingWindow(c.DefaultHours.Opens, c.DefaultHours.Closes)
	if err != nil {
		return slots.WeeklyWindows{}, fmt.Errorf("club default_hours: %w", err)
	}
	windows := slots.WeeklyWindows{Default: def, ByDay: make(map[int]slots.OperatingWindow, len(c.Hours))}
	for day, hours := range c.Hours {
		iso, ok := weekdays[strings.ToLower(day)]
		if !ok {
			return slots.WeeklyWindows{}, fmt.Errorf("unknown weekday %q in club hours", day)
		}
		w, err := slots.NewOperatingWindow(hours.Opens, hours.Closes)
		if err != nil {
			return slots.WeeklyWindows{}, fmt.Errorf("club hours %s: %w", day, err)
		}
		windows.ByDay[iso] = w
	}
	return windows, nil
}

// DurationClasses returns the configured slot lengths.
func (c ClubConfig) DurationClasses() []slots.DurationClass {
	out := make([]slots.DurationClass, 0, len(c.Durations))
	for _, d := range c.Durations {
		out = append(out, slots.DurationClass(d))
	}
	return out
}
