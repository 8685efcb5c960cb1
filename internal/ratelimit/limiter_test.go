package ratelimit

import (
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const clientAddr = "203.0.113.7"

func newLimiter(t *testing.T, mutate func(*Config)) (*Limiter, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Clock = clock
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), clock
}

func TestCooldownBetweenSubmissions(t *testing.T) {
	limiter, clock := newLimiter(t, nil)

	if d := limiter.Allow("owner-1", clientAddr); !d.Allowed {
		t.Fatalf("first submission denied: %+v", d)
	}

	clock.Advance(500 * time.Millisecond)
	d := limiter.Allow("owner-1", clientAddr)
	if d.Allowed || d.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown, got %+v", d)
	}
	if d.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s retry, got %v", d.RetryAfter)
	}

	if d := limiter.Allow("owner-2", clientAddr); !d.Allowed {
		t.Fatalf("cooldown leaked to another owner: %+v", d)
	}

	clock.Advance(2 * time.Second)
	if d := limiter.Allow("owner-1", clientAddr); !d.Allowed {
		t.Fatalf("submission after cooldown denied: %+v", d)
	}
}

func TestOwnerWindowCap(t *testing.T) {
	limiter, clock := newLimiter(t, func(c *Config) {
		c.Cooldown = time.Millisecond
		c.OwnerPerWindow = 3
	})

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		if d := limiter.Allow("owner-1", clientAddr); !d.Allowed {
			t.Fatalf("submission %d denied: %+v", i+1, d)
		}
	}

	clock.Advance(time.Second)
	d := limiter.Allow("owner-1", clientAddr)
	if d.Allowed || d.Reason != ReasonOwnerHourly {
		t.Fatalf("expected %s, got %+v", ReasonOwnerHourly, d)
	}
	// The window opened one second after start; four seconds have passed.
	if want := time.Hour - 3*time.Second; d.RetryAfter != want {
		t.Fatalf("expected retry after %v, got %v", want, d.RetryAfter)
	}

	clock.Advance(time.Hour)
	if d := limiter.Allow("owner-1", clientAddr); !d.Allowed {
		t.Fatalf("submission in a fresh window denied: %+v", d)
	}
}

func TestIPWindowCapAcrossOwners(t *testing.T) {
	limiter, clock := newLimiter(t, func(c *Config) {
		c.Cooldown = time.Millisecond
		c.IPPerWindow = 2
	})

	for _, owner := range []string{"owner-a", "owner-b"} {
		clock.Advance(time.Second)
		if d := limiter.Allow(owner, "203.0.113.9"); !d.Allowed {
			t.Fatalf("%s denied: %+v", owner, d)
		}
	}
	clock.Advance(time.Second)
	if d := limiter.Allow("owner-c", "203.0.113.9"); d.Allowed || d.Reason != ReasonIPHourly {
		t.Fatalf("expected %s, got %+v", ReasonIPHourly, d)
	}
	if d := limiter.Allow("owner-c", "203.0.113.10"); !d.Allowed {
		t.Fatalf("other address denied: %+v", d)
	}
}

func TestZeroCapDisablesWindow(t *testing.T) {
	limiter, clock := newLimiter(t, func(c *Config) {
		c.Cooldown = 0
		c.OwnerPerWindow = 0
		c.IPPerWindow = 0
	})
	for i := 0; i < 200; i++ {
		clock.Advance(time.Millisecond)
		if d := limiter.Allow("owner-1", clientAddr); !d.Allowed {
			t.Fatalf("submission %d denied with caps disabled: %+v", i+1, d)
		}
	}
}

func TestOwnerRefIsCaseFolded(t *testing.T) {
	limiter, _ := newLimiter(t, func(c *Config) { c.Cooldown = time.Minute })

	limiter.Allow("Ali@Example.com", clientAddr)
	if d := limiter.Allow("  ali@example.com ", clientAddr); d.Allowed {
		t.Fatalf("owner refs differing only by case should share a counter")
	}
}

func TestPeekDoesNotRecord(t *testing.T) {
	limiter, _ := newLimiter(t, func(c *Config) {
		c.Cooldown = time.Minute
		c.OwnerPerWindow = 1
	})

	for i := 0; i < 5; i++ {
		if d := limiter.Peek("owner-1", clientAddr); !d.Allowed {
			t.Fatalf("peek %d denied: %+v", i+1, d)
		}
	}
	limiter.Allow("owner-1", clientAddr)
	if d := limiter.Peek("owner-1", clientAddr); d.Allowed {
		t.Fatalf("peek after a recorded submission should be denied")
	}
}

func TestSweepForgetsIdleCounters(t *testing.T) {
	limiter, clock := newLimiter(t, nil)

	limiter.Allow("owner-1", clientAddr)
	if n := limiter.tracked(); n != 2 {
		t.Fatalf("expected owner and ip counters, got %d", n)
	}

	clock.Advance(2 * time.Hour)
	limiter.Allow("owner-2", "203.0.113.99")
	if n := limiter.tracked(); n != 2 {
		t.Fatalf("expected only the new submission's counters after sweep, got %d", n)
	}
}

func TestConcurrentSubmissionsRespectCapOfOne(t *testing.T) {
	limiter, _ := newLimiter(t, func(c *Config) {
		c.Cooldown = time.Hour
		c.OwnerPerWindow = 1
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("owner-1", clientAddr).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 1 {
		t.Fatalf("expected exactly one submission to pass, got %d", allowed)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		want       string
	}{
		{
			name:       "rightmost public hop",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4, 203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "203.0.113.50",
		},
		{
			name:       "all hops internal",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "10.0.0.1",
		},
		{
			name:       "real ip header",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "203.0.113.51",
		},
		{
			name:       "untrusted forwarded header ignored",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			want:       "192.168.1.100",
		},
		{
			name:       "untrusted real ip ignored",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			want:       "192.168.1.100",
		},
		{
			name:       "ipv6 remote",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote without port",
			remoteAddr: "192.168.1.100",
			want:       "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/bookings", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternalAddresses(t *testing.T) {
	tests := map[string]bool{
		"10.0.0.1":             true,
		"172.31.255.255":       true,
		"192.168.1.1":          true,
		"127.0.0.1":            true,
		"::1":                  true,
		"fc00::1":              true,
		"fe80::1":              true,
		"::ffff:192.168.1.1":   true,
		"::ffff:8.8.8.8":       false,
		"203.0.113.50":         false,
		"2001:4860:4860::8888": false,
	}
	for raw, want := range tests {
		if got := internal(netip.MustParseAddr(raw)); got != want {
			t.Errorf("internal(%s) = %v, want %v", raw, got, want)
		}
	}
}

func TestMaskOwner(t *testing.T) {
	tests := map[string]string{
		"ayesha.khan@example.com": "ay***@example.com",
		"ab@example.com":          "***@example.com",
		"+923001234567":           "***4567",
		"123":                     "***",
	}
	for in, want := range tests {
		if got := MaskOwner(in); got != want {
			t.Errorf("MaskOwner(%q) = %q, want %q", in, got, want)
		}
	}
}
