// cmd/server/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Spinergy/internal/api/auth"
	"github.com/codr1/Spinergy/internal/availability"
	"github.com/codr1/Spinergy/internal/booking"
	"github.com/codr1/Spinergy/internal/config"
	"github.com/codr1/Spinergy/internal/db"
	"github.com/codr1/Spinergy/internal/email"
	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/notifications"
	"github.com/codr1/Spinergy/internal/pricing"
	"github.com/codr1/Spinergy/internal/ratelimit"
	"github.com/codr1/Spinergy/internal/scheduler"
	"github.com/codr1/Spinergy/internal/slots"
	"github.com/codr1/Spinergy/internal/sms"
	"github.com/codr1/Spinergy/internal/tracing"
)

// readyCheck reports whether one dependency can serve traffic.
type readyCheck struct {
	name  string
	check func(context.Context) error
}

type app struct {
	db       *db.DB
	resolver *availability.Resolver
	guard    *booking.Guard
	prices   *pricing.CachedProvider
	limiter  *ratelimit.Limiter
	admin    *auth.AdminAuth

	bus      *events.LocalBus
	consumer *events.KafkaConsumer
	notifier *notifications.Notifier

	scheduler *scheduler.Service
	tracing   tracing.ShutdownFunc

	ready   []readyCheck
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	var err error

	a.tracing, err = tracing.Setup(ctx, cfg.Features.EnableTracing, cfg.Tracing, cfg.App.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	a.db, err = db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	a.ready = append(a.ready, readyCheck{name: "database", check: a.db.Ready})

	a.resolver, err = newResolver(cfg.Club)
	if err != nil {
		return nil, err
	}

	a.prices, err = pricing.NewCachedProvider(a.db, pricing.Config{
		TTL:      cfg.Pricing.CacheTTL,
		Currency: cfg.Pricing.Currency,
		Defaults: pricingDefaults(cfg.Pricing),
	})
	if err != nil {
		return nil, err
	}

	publisher, err := a.setupEvents(cfg)
	if err != nil {
		return nil, err
	}

	a.guard = booking.NewGuard(booking.Config{
		Resolver:     a.resolver,
		Store:        a.db,
		Pricing:      a.prices,
		Events:       publisher,
		StoreTimeout: cfg.Booking.StoreTimeout,
		MaxBatch:     cfg.Booking.MaxBatch,
	})

	a.limiter = ratelimit.New(ratelimit.Config{
		Cooldown:       cfg.Booking.RateLimit.Cooldown,
		OwnerPerWindow: cfg.Booking.RateLimit.HourlyCap,
		IPPerWindow:    cfg.Booking.RateLimit.IPHourlyCap,
		Window:         time.Hour,
	})

	a.admin = auth.NewAdminAuth(cfg.App.AdminTokenHash)
	if !a.admin.Enabled() {
		log.Ctx(ctx).Warn().Msg("ADMIN_TOKEN_HASH not set, admin endpoints are disabled")
	}

	if err := a.setupNotifications(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.setupReminders(cfg, publisher); err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

func newResolver(club config.ClubConfig) (*availability.Resolver, error) {
	windows, err := club.WeeklyWindows()
	if err != nil {
		return nil, err
	}
	policy, err := availability.ParsePolicy(club.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	generator := slots.NewGenerator(windows, club.DurationClasses())
	return availability.NewResolver(generator, availability.Config{
		Policy:      policy,
		Location:    club.Location(),
		HorizonDays: club.HorizonDays,
	}), nil
}

func pricingDefaults(cfg config.PricingConfig) []models.PricingRule {
	rules := make([]models.PricingRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, models.PricingRule{
			ResourceID:      r.Resource,
			DurationMinutes: r.Duration,
			Coaching:        r.Coaching,
			Amount:          r.Amount,
			Currency:        cfg.Currency,
		})
	}
	return rules
}

func (a *app) setupEvents(cfg *config.Config) (events.Publisher, error) {
	switch cfg.Events.Backend {
	case "kafka":
		kcfg := events.KafkaConfig{
			Brokers: cfg.Events.Kafka.Brokers,
			Topic:   cfg.Events.Kafka.Topic,
			GroupID: cfg.Events.Kafka.GroupID,
		}
		publisher, err := events.NewKafkaPublisher(kcfg)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		a.ready = append(a.ready, readyCheck{name: "kafka", check: events.KafkaReadyCheck(kcfg.Brokers)})
		return publisher, nil
	default:
		a.bus = events.NewLocalBus(cfg.Events.Buffer, cfg.Events.Workers)
		return a.bus, nil
	}
}

func (a *app) setupNotifications(ctx context.Context, cfg *config.Config) error {
	ncfg := cfg.Notifications
	if !ncfg.Enabled {
		log.Ctx(ctx).Info().Msg("Notifications disabled")
		return nil
	}

	var deduper notifications.Deduper
	switch ncfg.Dedupe.Backend {
	case "redis":
		client := notifications.NewRedisClient(ncfg.Dedupe.RedisAddr, ncfg.Dedupe.RedisPassword, ncfg.Dedupe.RedisDB)
		a.closers = append(a.closers, client.Close)
		a.ready = append(a.ready, readyCheck{name: "redis", check: notifications.RedisReadyCheck(client)})
		deduper = notifications.NewRedisDeduper(client, ncfg.Dedupe.TTL, "spinergy:notify")
	default:
		memory, err := notifications.NewMemoryDeduper(0, ncfg.Dedupe.TTL, nil)
		if err != nil {
			return err
		}
		deduper = memory
	}

	var sender email.Sender
	if ncfg.Email.AccessKeyID != "" && ncfg.Email.Sender != "" {
		ses, err := email.NewSES(ctx, email.SESConfig{
			Region:           ncfg.Email.Region,
			AccessKeyID:      ncfg.Email.AccessKeyID,
			SecretAccessKey:  ncfg.Email.SecretAccessKey,
			From:             ncfg.Email.Sender,
			ReplyTo:          ncfg.Email.ReplyTo,
			ConfigurationSet: ncfg.Email.ConfigurationSet,
		})
		if err != nil {
			return fmt.Errorf("create SES client: %w", err)
		}
		sender = ses
	} else {
		log.Ctx(ctx).Warn().Msg("SES credentials not set, email notifications disabled")
	}

	var messaging sms.Sender
	if ncfg.Twilio.AccountSID != "" {
		twilio, err := sms.NewTwilioClient(sms.TwilioConfig{
			AccountSID:   ncfg.Twilio.AccountSID,
			AuthToken:    ncfg.Twilio.AuthToken,
			SMSFrom:      ncfg.Twilio.SMSFrom,
			WhatsAppFrom: ncfg.Twilio.WhatsAppFrom,
		})
		if err != nil {
			return fmt.Errorf("create twilio client: %w", err)
		}
		messaging = twilio
	} else {
		log.Ctx(ctx).Warn().Msg("Twilio credentials not set, WhatsApp and SMS notifications disabled")
	}

	notifier, err := notifications.New(notifications.Config{
		ClubName:      cfg.Club.Name,
		AdminEmail:    ncfg.AdminEmail,
		AdminPhone:    ncfg.AdminPhone,
		DefaultRegion: ncfg.DefaultRegion,
		EmailFrom:     ncfg.Email.Sender,
		SendTimeout:   ncfg.SendTimeout,
		HoursBefore:   cfg.Reminders.HoursBefore,
		Email:         sender,
		Messaging:     messaging,
		Dedupe:        deduper,
		Resources:     a.db,
	})
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	a.notifier = notifier

	if a.bus != nil {
		a.bus.Subscribe(notifier.Handle)
		return nil
	}
	a.consumer = events.NewKafkaConsumer(events.KafkaConfig{
		Brokers: cfg.Events.Kafka.Brokers,
		Topic:   cfg.Events.Kafka.Topic,
		GroupID: cfg.Events.Kafka.GroupID,
	}, notifier.Handle)
	return nil
}

func (a *app) setupReminders(cfg *config.Config, publisher events.Publisher) error {
	if !cfg.Reminders.Enabled {
		return nil
	}
	svc, err := scheduler.New(nil)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	a.scheduler = svc

	job, err := scheduler.NewReminderJob(scheduler.ReminderConfig{
		Store:       a.db,
		Events:      publisher,
		HoursBefore: cfg.Reminders.HoursBefore,
	})
	if err != nil {
		return err
	}
	return scheduler.RegisterReminderJob(svc, job, cfg.Reminders.Cron)
}

// runWorkers starts the event workers and the scheduler on g. They stop when ctx is done.
func (a *app) runWorkers(ctx context.Context, g *errgroup.Group) {
	if a.bus != nil {
		g.Go(func() error {
			return a.bus.Run(ctx)
		})
	}
	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Run(ctx)
		})
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// shutdown stops scheduled jobs and flushes traces.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// close releases the stores and clients in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

// checkReady runs every dependency check with a short timeout.
func (a *app) checkReady(ctx context.Context) map[string]string {
	results := make(map[string]string, len(a.ready))
	for _, rc := range a.ready {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.check(checkCtx)
		cancel()
		if err != nil {
			results[rc.name] = err.Error()
			continue
		}
		results[rc.name] = "ok"
	}
	return results
}
