package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/Spinergy/internal/email"
	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
)

type sentMessage struct {
	channel string
	to      string
	body    string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error
}

func (f *fakeMessenger) record(channel, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[channel]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{channel: channel, to: to, body: body})
	return nil
}

func (f *fakeMessenger) SendSMS(_ context.Context, to, body string) error {
	return f.record("sms", to, body)
}

func (f *fakeMessenger) SendWhatsApp(_ context.Context, to, body string) error {
	return f.record("whatsapp", to, body)
}

func (f *fakeMessenger) Send(_ context.Context, env email.Envelope) error {
	return f.record("email", env.To, env.Subject+"\n"+env.Body)
}

func (f *fakeMessenger) byChannel(channel string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.channel == channel {
			out = append(out, m)
		}
	}
	return out
}

type fakeResources map[string]models.Resource

func (f fakeResources) Resource(_ context.Context, id string) (models.Resource, error) {
	r, ok := f[id]
	if !ok {
		return models.Resource{}, models.ErrNotFound
	}
	return r, nil
}

type brokenDeduper struct{}

func (brokenDeduper) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestNotifier(t *testing.T, messenger *fakeMessenger, dedupe Deduper) *Notifier {
	t.Helper()
	if dedupe == nil {
		var err error
		dedupe, err = NewMemoryDeduper(100, time.Hour, clockwork.NewFakeClock())
		if err != nil {
			t.Fatalf("NewMemoryDeduper: %v", err)
		}
	}
	n, err := New(Config{
		ClubName:    "Spinergy",
		AdminEmail:  "admin@spinergy.pk",
		AdminPhone:  "03259898900",
		EmailFrom:   "bookings@spinergy.pk",
		SendTimeout: time.Second,
		HoursBefore: 24,
		Email:       messenger,
		Messaging:   messenger,
		Dedupe:      dedupe,
		Resources: fakeResources{
			"table_a": {ID: "table_a", DisplayName: "Table A"},
			"table_b": {ID: "table_b", DisplayName: "Table B"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func testReservation(id, resource string, start int) models.Reservation {
	date, _ := models.ParseDate("2025-06-02")
	return models.Reservation{
		ID:              id,
		ResourceID:      resource,
		Date:            date,
		StartMinute:     start,
		EndMinute:       start + 60,
		DurationMinutes: 60,
		OwnerRef:        "owner-1",
		Customer:        models.Customer{Name: "Ali", Email: "ali@example.com", Phone: "0300-1234567"},
		PriceAmount:     1000,
		Currency:        "PKR",
		Status:          models.ReservationStatusConfirmed,
	}
}

func batchEvents() []events.Event {
	first := testReservation("r1", "table_a", 18*60)
	second := testReservation("r2", "table_b", 19*60)
	second.PriceAmount = 800
	batch := &events.Batch{
		ID:         "b1",
		TotalPrice: 1800,
		Currency:   "PKR",
		Slots: []events.BatchSlot{
			{ReservationID: "r1", ResourceID: "table_a", Date: first.Date, StartMinute: first.StartMinute, EndMinute: first.EndMinute, PriceAmount: 1000},
			{ReservationID: "r2", ResourceID: "table_b", Date: second.Date, StartMinute: second.StartMinute, EndMinute: second.EndMinute, PriceAmount: 800},
		},
	}
	e1 := events.New(events.TypeReservationCreated, first, time.Now())
	e1.Batch = batch
	e2 := events.New(events.TypeReservationCreated, second, time.Now())
	e2.BatchIndex = 1
	return []events.Event{e1, e2}
}

func TestCreatedFansOutToEveryChannel(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, nil)

	for _, e := range batchEvents() {
		if err := n.Handle(context.Background(), e); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	whatsapp := messenger.byChannel("whatsapp")
	if len(whatsapp) != 4 {
		t.Fatalf("expected customer and admin whatsapp per slot, got %d", len(whatsapp))
	}
	var toAdmin int
	for _, m := range whatsapp {
		switch m.to {
		case "+923259898900":
			toAdmin++
		case "+923001234567":
		default:
			t.Fatalf("unexpected whatsapp recipient %q", m.to)
		}
	}
	if toAdmin != 2 {
		t.Fatalf("expected 2 admin whatsapp messages, got %d", toAdmin)
	}

	if got := len(messenger.byChannel("email")); got != 4 {
		t.Fatalf("expected customer and admin email per slot, got %d", got)
	}

	smsMessages := messenger.byChannel("sms")
	if len(smsMessages) != 1 {
		t.Fatalf("expected one sms summary per batch, got %d", len(smsMessages))
	}
	for _, want := range []string{"1. Table A 2025-06-02 6:00 PM - 7:00 PM", "2. Table B", "Total: PKR 1800"} {
		if !strings.Contains(smsMessages[0].body, want) {
			t.Errorf("sms missing %q:\n%s", want, smsMessages[0].body)
		}
	}
}

func TestRedeliveredEventSendsOnce(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, nil)
	e := batchEvents()[0]

	for i := 0; i < 3; i++ {
		if err := n.Handle(context.Background(), e); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if got := len(messenger.sent); got != 5 {
		t.Fatalf("expected 5 messages for one event, got %d", got)
	}
}

func TestFailedChannelDoesNotBlockOthers(t *testing.T) {
	messenger := &fakeMessenger{fail: map[string]error{"whatsapp": errors.New("63016 outside window")}}
	n := newTestNotifier(t, messenger, nil)
	e := batchEvents()[0]

	err := n.Handle(context.Background(), e)
	if err == nil || !strings.Contains(err.Error(), string(ChannelCustomerWhatsApp)) {
		t.Fatalf("expected whatsapp failure to be reported, got %v", err)
	}
	if got := len(messenger.byChannel("email")); got != 2 {
		t.Fatalf("expected emails to still send, got %d", got)
	}

	// A failed channel stays claimed.
	if err := n.Handle(context.Background(), e); err != nil {
		t.Fatalf("redelivery should be silent, got %v", err)
	}
}

func TestDedupeOutageSkipsSends(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, brokenDeduper{})

	if err := n.Handle(context.Background(), batchEvents()[0]); err == nil {
		t.Fatalf("expected dedupe errors to be reported")
	}
	if len(messenger.sent) != 0 {
		t.Fatalf("expected no sends without a claim, got %d", len(messenger.sent))
	}
}

func TestInvalidCustomerPhoneSkipsPhoneChannels(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, nil)
	r := testReservation("r1", "table_a", 18*60)
	r.Customer.Phone = "12"
	e := events.New(events.TypeReservationCreated, r, time.Now())

	if err := n.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := len(messenger.byChannel("sms")); got != 0 {
		t.Fatalf("expected no sms, got %d", got)
	}
	whatsapp := messenger.byChannel("whatsapp")
	if len(whatsapp) != 1 || whatsapp[0].to != "+923259898900" {
		t.Fatalf("expected admin whatsapp only, got %+v", whatsapp)
	}
}

func TestCancelledSendsEmail(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, nil)
	r := testReservation("r1", "table_a", 25*60)
	r.Status = models.ReservationStatusCancelled
	r.CancelReason = "schedule change"

	if err := n.Handle(context.Background(), events.New(events.TypeReservationCancelled, r, time.Now())); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	mails := messenger.byChannel("email")
	if len(mails) != 1 || mails[0].to != "ali@example.com" {
		t.Fatalf("expected one cancellation email, got %+v", mails)
	}
	for _, want := range []string{"Booking Cancelled", "Reason: schedule change", "(next day)"} {
		if !strings.Contains(mails[0].body, want) {
			t.Errorf("cancellation email missing %q:\n%s", want, mails[0].body)
		}
	}
}

func TestRemindersDedupePerReservation(t *testing.T) {
	messenger := &fakeMessenger{}
	n := newTestNotifier(t, messenger, nil)
	r := testReservation("r1", "table_a", 18*60)

	for i := 0; i < 2; i++ {
		if err := n.Handle(context.Background(), events.New(events.TypeReminderDue, r, time.Now())); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if got := len(messenger.byChannel("email")); got != 1 {
		t.Fatalf("expected one reminder email, got %d", got)
	}
	if got := len(messenger.byChannel("whatsapp")); got != 1 {
		t.Fatalf("expected one reminder whatsapp, got %d", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without deduper")
	}
	dedupe, _ := NewMemoryDeduper(10, time.Hour, nil)
	if _, err := New(Config{Dedupe: dedupe, AdminPhone: "not-a-number"}); err == nil {
		t.Fatalf("expected error for invalid admin phone")
	}
}
