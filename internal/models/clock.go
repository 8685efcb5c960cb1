package models

import (
	"fmt"
	"strconv"
	"strings"
)

const MinutesPerDay = 24 * 60

// FormatClock renders a minute offset as HH:MM on a 24-hour clock, wrapping past midnight.
func FormatClock(minute int) string {
	m := ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatClock12 renders a minute offset as h:MM AM/PM, wrapping past midnight.
func FormatClock12(minute int) string {
	m := ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hours, mins := m/60, m%60
	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	hours12 := hours % 12
	if hours12 == 0 {
		hours12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hours12, mins, period)
}

// ParseClock parses HH:MM into a minute offset. Hours up to 47 are accepted so that
// times past midnight can be written as continuous offsets (e.g. "26:00" is 02:00 next day).
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	hoursRaw, minsRaw, ok := strings.Cut(raw, ":")
	if !ok || hoursRaw == "" || len(minsRaw) != 2 || strings.ContainsAny(raw, "+-") {
		return 0, fmt.Errorf("must be in HH:MM format")
	}
	hours, err := strconv.Atoi(hoursRaw)
	if err != nil || hours < 0 || hours > 47 {
		return 0, fmt.Errorf("hour must be between 00 and 47")
	}
	mins, err := strconv.Atoi(minsRaw)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("minute must be between 00 and 59")
	}
	return hours*60 + mins, nil
}
