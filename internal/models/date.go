// internal/models/date.go
package models

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, InvalidRequest("date", "is required")
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, InvalidRequest("date", "must be in YYYY-MM-DD format")
	}
	return DateOf(parsed), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Midnight returns the start of the date in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the instant that lies minute minutes after the date's midnight in loc.
// Minutes past 1440 land on the following calendar day.
func (d Date) At(minute int, loc *time.Location) time.Time {
	return d.Midnight(loc).Add(time.Duration(minute) * time.Minute)
}

// ISOWeekday returns Monday=1 through Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.Midnight(time.UTC).Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekdayName returns the English weekday name used in customer messages.
func (d Date) WeekdayName() string {
	return d.Midnight(time.UTC).Weekday().String()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.Midnight(time.UTC).Compare(other.Midnight(time.UTC))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
