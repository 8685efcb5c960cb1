package email

import (
	"fmt"
	"strings"

	"github.com/codr1/Spinergy/internal/models"
)

type Message struct {
	Subject string
	Body    string
}

// BookingDetails carries the display fields of one confirmed booking. Slots lists every
// time range of the batch the booking belonged to when more than one slot was booked.
type BookingDetails struct {
	ClubName        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Table           string
	Date            string
	DayOfWeek       string
	TimeRange       string
	DurationMinutes int
	Coaching        bool
	Price           string
	Slots           []string
	Total           string
}

type CancellationDetails struct {
	ClubName     string
	CustomerName string
	Table        string
	Date         string
	TimeRange    string
	Reason       string
}

type ReminderDetails struct {
	ClubName     string
	CustomerName string
	Table        string
	Date         string
	TimeRange    string
	HoursBefore  int
}

// FormatSlotRange renders a slot's minute offsets as "h:MM AM - h:MM AM", marking slots
// that start after midnight of the operating day.
func FormatSlotRange(startMinute, endMinute int) string {
	out := fmt.Sprintf("%s - %s", models.FormatClock12(startMinute), models.FormatClock12(endMinute))
	if startMinute >= models.MinutesPerDay {
		out += " (next day)"
	}
	return out
}

// FormatAmount renders a whole-unit amount with its currency code.
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "PKR"
	}
	return fmt.Sprintf("%s %d", currency, amount)
}

// BookingDetailsFor builds the display fields for a reservation.
func BookingDetailsFor(clubName, table string, r models.Reservation) BookingDetails {
	return BookingDetails{
		ClubName:        clubName,
		CustomerName:    r.Customer.Name,
		CustomerEmail:   r.Customer.Email,
		CustomerPhone:   r.Customer.Phone,
		Table:           table,
		Date:            r.Date.String(),
		DayOfWeek:       r.Date.WeekdayName(),
		TimeRange:       FormatSlotRange(r.StartMinute, r.EndMinute),
		DurationMinutes: r.DurationMinutes,
		Coaching:        r.Coaching,
		Price:           FormatAmount(r.PriceAmount, r.Currency),
	}
}

func BuildConfirmationEmail(details BookingDetails) Message {
	club := clubName(details.ClubName)
	lines := []string{
		fmt.Sprintf("Dear %s,", orDefault(details.CustomerName, "customer")),
		"",
		fmt.Sprintf("Your table booking at %s is confirmed.", club),
		"",
	}
	lines = append(lines, bookingLines(details)...)
	lines = append(lines,
		"",
		"Please arrive 5 minutes before your slot. Contact the club to change or cancel.",
	)
	return Message{
		Subject: fmt.Sprintf("Booking Confirmed - %s", club),
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildAdminBookingEmail(details BookingDetails) Message {
	club := clubName(details.ClubName)
	lines := []string{
		fmt.Sprintf("New booking received at %s.", club),
		"",
		fmt.Sprintf("Customer: %s", orDefault(details.CustomerName, "Not provided")),
		fmt.Sprintf("Email: %s", orDefault(details.CustomerEmail, "Not provided")),
		fmt.Sprintf("Phone: %s", orDefault(details.CustomerPhone, "Not provided")),
	}
	lines = append(lines, bookingLines(details)...)
	if len(details.Slots) > 1 {
		lines = append(lines, "", "Slots in this booking:")
		for i, slot := range details.Slots {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, slot))
		}
		if details.Total != "" {
			lines = append(lines, fmt.Sprintf("Total: %s", details.Total))
		}
	}
	return Message{
		Subject: fmt.Sprintf("New Booking - %s - %s %s", orDefault(details.CustomerName, "Customer"), details.Date, details.TimeRange),
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildCancellationEmail(details CancellationDetails) Message {
	club := clubName(details.ClubName)
	lines := []string{
		fmt.Sprintf("Dear %s,", orDefault(details.CustomerName, "customer")),
		"",
		"Your table booking has been cancelled.",
		"",
		fmt.Sprintf("Club: %s", club),
		fmt.Sprintf("Table: %s", orDefault(details.Table, "TBD")),
		fmt.Sprintf("Date: %s", orDefault(details.Date, "TBD")),
		fmt.Sprintf("Time: %s", orDefault(details.TimeRange, "TBD")),
	}
	if reason := strings.TrimSpace(details.Reason); reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", reason))
	}
	return Message{
		Subject: fmt.Sprintf("Booking Cancelled - %s", club),
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildReminderEmail(details ReminderDetails) Message {
	club := clubName(details.ClubName)
	lead := "soon"
	if details.HoursBefore > 0 {
		lead = fmt.Sprintf("within %d hours", details.HoursBefore)
	}
	lines := []string{
		fmt.Sprintf("Dear %s,", orDefault(details.CustomerName, "customer")),
		"",
		fmt.Sprintf("Reminder: your table booking starts %s.", lead),
		"",
		fmt.Sprintf("Club: %s", club),
		fmt.Sprintf("Table: %s", orDefault(details.Table, "TBD")),
		fmt.Sprintf("Date: %s", orDefault(details.Date, "TBD")),
		fmt.Sprintf("Time: %s", orDefault(details.TimeRange, "TBD")),
	}
	return Message{
		Subject: fmt.Sprintf("Upcoming Booking Reminder - %s", club),
		Body:    strings.Join(lines, "\n"),
	}
}

func bookingLines(details BookingDetails) []string {
	date := orDefault(details.Date, "TBD")
	if details.DayOfWeek != "" {
		date = fmt.Sprintf("%s (%s)", date, details.DayOfWeek)
	}
	coaching := "No"
	if details.Coaching {
		coaching = "Yes"
	}
	lines := []string{
		fmt.Sprintf("Table: %s", orDefault(details.Table, "TBD")),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Time: %s", orDefault(details.TimeRange, "TBD")),
		fmt.Sprintf("Duration: %d minutes", details.DurationMinutes),
		fmt.Sprintf("Coaching: %s", coaching),
	}
	if details.Price != "" {
		lines = append(lines, fmt.Sprintf("Amount: %s", details.Price))
	}
	return lines
}

func clubName(name string) string {
	return orDefault(name, "Spinergy")
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
