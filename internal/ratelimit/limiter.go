// Package ratelimit throttles booking submissions per owner and per client IP.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	ReasonCooldown     = "cooldown"
	ReasonOwnerHourly  = "hourly_limit"
	ReasonIPHourly     = "ip_hourly_limit"
	sweepInterval      = 5 * time.Minute
	defaultWindowWidth = time.Hour
)

type Config struct {
	// Cooldown is the minimum gap between two submissions of one owner.
	Cooldown       time.Duration
	// OwnerPerWindow and IPPerWindow cap submissions within Window. Zero disables the cap.
	OwnerPerWindow int
	IPPerWindow    int
	Window         time.Duration

	Clock clockwork.Clock
}

func DefaultConfig() Config {
	return Config{
		Cooldown:       2 * time.Second,
		OwnerPerWindow: 30,
		IPPerWindow:    120,
		Window:         defaultWindowWidth,
	}
}

// Decision is the outcome of one submission attempt.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string, retryAfter time.Duration) Decision {
	return Decision{Reason: reason, RetryAfter: retryAfter}
}

// counter is a fixed window opened by the first submission it sees.
type counter struct {
	opened time.Time
	last   time.Time
	hits   int
}

func (c *counter) live(now time.Time, width time.Duration) bool {
	return c != nil && now.Sub(c.opened) < width
}

func (c *counter) full(now time.Time, width time.Duration, limit int) (time.Duration, bool) {
	if limit <= 0 || !c.live(now, width) || c.hits < limit {
		return 0, false
	}
	return width - now.Sub(c.opened), true
}

type Limiter struct {
	cfg   Config
	clock clockwork.Clock

	mu        sync.Mutex
	owners    map[string]*counter
	ips       map[string]*counter
	lastSweep time.Time
}

func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindowWidth
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Limiter{
		cfg:       cfg,
		clock:     cfg.Clock,
		owners:    make(map[string]*counter),
		ips:       make(map[string]*counter),
		lastSweep: cfg.Clock.Now(),
	}
}

// Allow decides and records one submission under a single lock, so two concurrent
// requests never both pass a cap of one.
func (l *Limiter) Allow(owner, ip string) Decision {
	ownerKey, ipKey := ownerKeyFor(owner), digest("ip", ip)
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)
	if d := l.decide(ownerKey, ipKey, now); !d.Allowed {
		return d
	}
	l.hit(l.owners, ownerKey, now)
	l.hit(l.ips, ipKey, now)
	return allow()
}

// Peek reports the decision Allow would make without recording anything.
func (l *Limiter) Peek(owner, ip string) Decision {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(ownerKeyFor(owner), digest("ip", ip), now)
}

func (l *Limiter) decide(ownerKey, ipKey string, now time.Time) Decision {
	width := l.cfg.Window
	if c := l.owners[ownerKey]; c != nil {
		if gap := now.Sub(c.last); gap < l.cfg.Cooldown {
			return deny(ReasonCooldown, l.cfg.Cooldown-gap)
		}
		if wait, full := c.full(now, width, l.cfg.OwnerPerWindow); full {
			return deny(ReasonOwnerHourly, wait)
		}
	}
	if wait, full := l.ips[ipKey].full(now, width, l.cfg.IPPerWindow); full {
		return deny(ReasonIPHourly, wait)
	}
	return allow()
}

func (l *Limiter) hit(counters map[string]*counter, key string, now time.Time) {
	c := counters[key]
	if !c.live(now, l.cfg.Window) {
		counters[key] = &counter{opened: now, last: now, hits: 1}
		return
	}
	c.hits++
	c.last = now
}

func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.sweep(now)
}

// sweep forgets counters that can no longer deny anything.
func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	idle := l.cfg.Window
	if l.cfg.Cooldown > idle {
		idle = l.cfg.Cooldown
	}
	for _, counters := range []map[string]*counter{l.owners, l.ips} {
		for key, c := range counters {
			if now.Sub(c.last) >= idle && !c.live(now, l.cfg.Window) {
				delete(counters, key)
			}
		}
	}
}

func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.owners) + len(l.ips)
}

// ownerKeyFor folds case and surrounding space so "Ali@x.com " and "ali@x.com" share a counter.
func ownerKeyFor(owner string) string {
	return digest("owner", strings.ToLower(strings.TrimSpace(owner)))
}

func digest(kind, value string) string {
	sum := sha256.Sum256([]byte(value))
	return kind + ":" + hex.EncodeToString(sum[:8])
}

// MaskOwner hides most of an owner reference for logs.
func MaskOwner(owner string) string {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if local, domain, ok := strings.Cut(owner, "@"); ok {
		if len(local) > 2 {
			return local[:2] + "***@" + domain
		}
		return "***@" + domain
	}
	if len(owner) >= 4 {
		return "***" + owner[len(owner)-4:]
	}
	return "***"
}

// LogDenied records a throttled submission on the request logger.
func LogDenied(ctx context.Context, owner, ip string, d Decision) {
	log.Ctx(ctx).Warn().
		Str("event", "rate_limit_exceeded").
		Str("owner", MaskOwner(owner)).
		Str("ip", ip).
		Str("reason", d.Reason).
		Dur("retry_after", d.RetryAfter).
		Msg("Booking submission throttled")
}
