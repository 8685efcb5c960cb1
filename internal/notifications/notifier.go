// Package notifications turns reservation events into customer and admin messages.
// Every (event, channel) pair is claimed in a Deduper before sending, so a redelivered
// event never produces a second message on the same channel.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Spinergy/internal/email"
	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/phone"
	"github.com/codr1/Spinergy/internal/sms"
)

type Channel string

const (
	ChannelCustomerWhatsApp Channel = "customer_whatsapp"
	ChannelAdminWhatsApp    Channel = "admin_whatsapp"
	ChannelCustomerEmail    Channel = "customer_email"
	ChannelAdminEmail       Channel = "admin_email"
	ChannelCustomerSMS      Channel = "customer_sms"
)

// ResourceSource resolves table display names.
type ResourceSource interface {
	Resource(ctx context.Context, id string) (models.Resource, error)
}

type Config struct {
	ClubName      string
	AdminEmail    string
	AdminPhone    string
	DefaultRegion string
	EmailFrom     string
	SendTimeout   time.Duration
	HoursBefore   int

	// Email and Messaging may be nil to disable those channels.
	Email     email.Sender
	Messaging sms.Sender
	Dedupe    Deduper
	Resources ResourceSource
}

type Notifier struct {
	cfg        Config
	adminPhone string
}

type delivery struct {
	channel Channel
	send    func(ctx context.Context) error
}

func New(cfg Config) (*Notifier, error) {
	if cfg.Dedupe == nil {
		return nil, errors.New("notification deduper is required")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.ClubName == "" {
		cfg.ClubName = "Spinergy"
	}
	if cfg.DefaultRegion == "" {
		cfg.DefaultRegion = phone.DefaultRegion
	}
	n := &Notifier{cfg: cfg}
	if raw := strings.TrimSpace(cfg.AdminPhone); raw != "" {
		normalized, err := phone.Normalize(raw, cfg.DefaultRegion)
		if err != nil {
			return nil, fmt.Errorf("admin phone: %w", err)
		}
		n.adminPhone = normalized
	}
	return n, nil
}

// Handle is an events.Handler. It returns the joined errors of the channels that failed.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	var deliveries []delivery
	switch e.Type {
	case events.TypeReservationCreated:
		deliveries = n.created(ctx, e)
	case events.TypeReservationCancelled:
		deliveries = n.cancelled(ctx, e)
	case events.TypeReminderDue:
		deliveries = n.reminder(ctx, e)
	default:
		log.Ctx(ctx).Debug().Str("event_type", string(e.Type)).Msg("Ignoring event type")
		return nil
	}
	return n.dispatch(ctx, e, deliveries)
}

func (n *Notifier) created(ctx context.Context, e events.Event) []delivery {
	r := e.Reservation
	details := email.BookingDetailsFor(n.cfg.ClubName, n.tableName(ctx, r.ResourceID), r)
	customerPhone := n.customerPhone(ctx, r)
	if customerPhone != "" {
		details.CustomerPhone = customerPhone
	}

	var slots []string
	total := details.Price
	if e.Batch != nil {
		for _, slot := range e.Batch.Slots {
			slots = append(slots, slotLine(n.tableName(ctx, slot.ResourceID), slot))
		}
		total = email.FormatAmount(e.Batch.TotalPrice, e.Batch.Currency)
		details.Slots = slots
		details.Total = total
	}

	var out []delivery
	if n.cfg.Messaging != nil && customerPhone != "" {
		body := customerWhatsApp(details)
		out = append(out, delivery{ChannelCustomerWhatsApp, func(ctx context.Context) error {
			return n.cfg.Messaging.SendWhatsApp(ctx, customerPhone, body)
		}})
	}
	if n.cfg.Messaging != nil && n.adminPhone != "" {
		body := adminWhatsApp(details)
		out = append(out, delivery{ChannelAdminWhatsApp, func(ctx context.Context) error {
			return n.cfg.Messaging.SendWhatsApp(ctx, n.adminPhone, body)
		}})
	}
	if n.cfg.Email != nil && r.Customer.Email != "" {
		msg := email.BuildConfirmationEmail(details)
		out = append(out, delivery{ChannelCustomerEmail, n.emailTo(r.Customer.Email, msg)})
	}
	if n.cfg.Email != nil && n.cfg.AdminEmail != "" {
		msg := email.BuildAdminBookingEmail(details)
		out = append(out, delivery{ChannelAdminEmail, n.emailTo(n.cfg.AdminEmail, msg)})
	}
	// One SMS per submission, carried by the first booked slot.
	if n.cfg.Messaging != nil && customerPhone != "" && e.BatchIndex == 0 {
		body := batchSMS(details, slots, total)
		out = append(out, delivery{ChannelCustomerSMS, func(ctx context.Context) error {
			return n.cfg.Messaging.SendSMS(ctx, customerPhone, body)
		}})
	}
	return out
}

func (n *Notifier) cancelled(ctx context.Context, e events.Event) []delivery {
	r := e.Reservation
	if n.cfg.Email == nil || r.Customer.Email == "" {
		return nil
	}
	msg := email.BuildCancellationEmail(email.CancellationDetails{
		ClubName:     n.cfg.ClubName,
		CustomerName: r.Customer.Name,
		Table:        n.tableName(ctx, r.ResourceID),
		Date:         r.Date.String(),
		TimeRange:    email.FormatSlotRange(r.StartMinute, r.EndMinute),
		Reason:       r.CancelReason,
	})
	return []delivery{{ChannelCustomerEmail, n.emailTo(r.Customer.Email, msg)}}
}

func (n *Notifier) reminder(ctx context.Context, e events.Event) []delivery {
	r := e.Reservation
	details := email.ReminderDetails{
		ClubName:     n.cfg.ClubName,
		CustomerName: r.Customer.Name,
		Table:        n.tableName(ctx, r.ResourceID),
		Date:         r.Date.String(),
		TimeRange:    email.FormatSlotRange(r.StartMinute, r.EndMinute),
		HoursBefore:  n.cfg.HoursBefore,
	}

	var out []delivery
	if n.cfg.Email != nil && r.Customer.Email != "" {
		out = append(out, delivery{ChannelCustomerEmail, n.emailTo(r.Customer.Email, email.BuildReminderEmail(details))})
	}
	if customerPhone := n.customerPhone(ctx, r); n.cfg.Messaging != nil && customerPhone != "" {
		body := reminderWhatsApp(details)
		out = append(out, delivery{ChannelCustomerWhatsApp, func(ctx context.Context) error {
			return n.cfg.Messaging.SendWhatsApp(ctx, customerPhone, body)
		}})
	}
	return out
}

func (n *Notifier) emailTo(recipient string, msg email.Message) func(context.Context) error {
	return func(ctx context.Context) error {
		return email.Deliver(ctx, n.cfg.Email, email.Envelope{From: n.cfg.EmailFrom, To: recipient, Message: msg}, n.cfg.SendTimeout)
	}
}

// dispatch sends every delivery concurrently. A channel whose claim fails is skipped, not
// retried, so a message is never sent twice.
func (n *Notifier) dispatch(ctx context.Context, e events.Event, deliveries []delivery) error {
	logger := log.Ctx(ctx).With().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("reservation_id", e.Reservation.ID).
		Logger()

	errs := make([]error, len(deliveries))
	var g errgroup.Group
	for i, d := range deliveries {
		g.Go(func() error {
			key := dedupeKey(e, d.channel)
			claimed, err := n.cfg.Dedupe.Claim(ctx, key)
			if err != nil {
				logger.Error().Err(err).Str("channel", string(d.channel)).Msg("Skipping notification, dedupe unavailable")
				errs[i] = fmt.Errorf("%s: %w", d.channel, err)
				return nil
			}
			if !claimed {
				logger.Debug().Str("channel", string(d.channel)).Msg("Notification already sent")
				return nil
			}

			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.SendTimeout)
			defer cancel()
			if err := d.send(sendCtx); err != nil {
				logger.Error().Err(err).Str("channel", string(d.channel)).Msg("Failed to send notification")
				errs[i] = fmt.Errorf("%s: %w", d.channel, err)
				return nil
			}
			logger.Info().Str("channel", string(d.channel)).Msg("Notification sent")
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// dedupeKey scopes reminders to the reservation so repeated scheduler runs stay silent.
func dedupeKey(e events.Event, channel Channel) string {
	if e.Type == events.TypeReminderDue {
		return fmt.Sprintf("reminder|%s|%s", e.Reservation.ID, channel)
	}
	return fmt.Sprintf("%s|%s", e.ID, channel)
}

func (n *Notifier) customerPhone(ctx context.Context, r models.Reservation) string {
	raw := strings.TrimSpace(r.Customer.Phone)
	if raw == "" {
		return ""
	}
	normalized, err := phone.Normalize(raw, n.cfg.DefaultRegion)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("reservation_id", r.ID).Msg("Skipping phone channels for invalid number")
		return ""
	}
	return normalized
}

func (n *Notifier) tableName(ctx context.Context, resourceID string) string {
	if n.cfg.Resources == nil {
		return resourceID
	}
	res, err := n.cfg.Resources.Resource(ctx, resourceID)
	if err != nil || res.DisplayName == "" {
		return resourceID
	}
	return res.DisplayName
}
