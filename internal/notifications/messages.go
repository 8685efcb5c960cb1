package notifications

import (
	"fmt"
	"strings"

	"github.com/codr1/Spinergy/internal/email"
	"github.com/codr1/Spinergy/internal/events"
)

const divider = "━━━━━━━━━━━━━━━━━━━━"

func customerWhatsApp(d email.BookingDetails) string {
	var b strings.Builder
	b.WriteString("✅ *BOOKING CONFIRMED*\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "Dear *%s*,\n\n", d.CustomerName)
	fmt.Fprintf(&b, "Thank you for choosing %s! Your table booking is confirmed.\n\n", d.ClubName)
	fmt.Fprintf(&b, "🏓 *Table:* %s\n", d.Table)
	fmt.Fprintf(&b, "📅 *Date:* %s (%s)\n", d.Date, d.DayOfWeek)
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", d.TimeRange)
	fmt.Fprintf(&b, "⏱️ *Duration:* %d minutes\n", d.DurationMinutes)
	if d.Coaching {
		b.WriteString("🎓 *Coaching:* Included\n")
	}
	fmt.Fprintf(&b, "💰 *Amount:* %s\n", d.Price)
	b.WriteString("\n" + divider + "\n")
	b.WriteString("Please arrive 5 minutes early. See you at the table! 🏓")
	return b.String()
}

func adminWhatsApp(d email.BookingDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *%s TABLE BOOKING*\n", strings.ToUpper(d.ClubName))
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "👤 *Customer:* %s\n", d.CustomerName)
	fmt.Fprintf(&b, "📞 *Contact:* %s\n", orNotProvided(d.CustomerPhone))
	fmt.Fprintf(&b, "📧 *Email:* %s\n", orNotProvided(d.CustomerEmail))
	fmt.Fprintf(&b, "🏓 *Table:* %s\n", d.Table)
	fmt.Fprintf(&b, "📅 *Date:* %s (%s)\n", d.Date, d.DayOfWeek)
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", d.TimeRange)
	fmt.Fprintf(&b, "⏱️ *Duration:* %d minutes\n", d.DurationMinutes)
	coaching := "No"
	if d.Coaching {
		coaching = "Yes"
	}
	fmt.Fprintf(&b, "🎓 *Coaching:* %s\n", coaching)
	fmt.Fprintf(&b, "💰 *Amount:* %s\n", d.Price)
	b.WriteString("\n" + divider + "\n")
	b.WriteString("_Automated notification from the booking system._")
	return b.String()
}

// batchSMS summarises every slot of a submission in one short text.
func batchSMS(d email.BookingDetails, slots []string, total string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Booking Confirmed!\n", d.ClubName)
	fmt.Fprintf(&b, "%s\n", d.CustomerName)
	if len(slots) <= 1 {
		fmt.Fprintf(&b, "Table: %s\n", d.Table)
		fmt.Fprintf(&b, "Date: %s\n", d.Date)
		fmt.Fprintf(&b, "Time: %s\n", d.TimeRange)
	} else {
		for i, slot := range slots {
			fmt.Fprintf(&b, "%d. %s\n", i+1, slot)
		}
	}
	fmt.Fprintf(&b, "Total: %s\n", total)
	b.WriteString("See you!")
	return b.String()
}

func reminderWhatsApp(d email.ReminderDetails) string {
	var b strings.Builder
	b.WriteString("⏰ *BOOKING REMINDER*\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "Dear *%s*, your table booking is coming up.\n\n", d.CustomerName)
	fmt.Fprintf(&b, "🏓 *Table:* %s\n", d.Table)
	fmt.Fprintf(&b, "📅 *Date:* %s\n", d.Date)
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", d.TimeRange)
	return b.String()
}

func slotLine(table string, slot events.BatchSlot) string {
	return fmt.Sprintf("%s %s %s", table, slot.Date, email.FormatSlotRange(slot.StartMinute, slot.EndMinute))
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not provided"
	}
	return v
}
