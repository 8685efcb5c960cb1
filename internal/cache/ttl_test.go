package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTTLExpiresEntries(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	c, err := NewTTL[string, int](4, 5*time.Minute, clock)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}

	c.Add("table_a", 500)
	clock.Advance(4 * time.Minute)
	if v, ok := c.Get("table_a"); !ok || v != 500 {
		t.Fatalf("expected cached value, got %d %t", v, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("table_a"); ok {
		t.Fatalf("entry should expire at ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}
}

func TestTTLPurgeAndEviction(t *testing.T) {
	c, err := NewTTL[int, string](2, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}
	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")
	if _, ok := c.Get(1); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	c.Remove(2)
	if _, ok := c.Get(2); ok {
		t.Fatalf("removed entry still present")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("purge left %d entries", c.Len())
	}
}

func TestTTLAddIfAbsent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	c, err := NewTTL[string, struct{}](8, time.Hour, clock)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}

	if !c.AddIfAbsent("e1|email", struct{}{}) {
		t.Fatalf("first claim should store")
	}
	if c.AddIfAbsent("e1|email", struct{}{}) {
		t.Fatalf("second claim should be rejected")
	}
	clock.Advance(time.Hour)
	if !c.AddIfAbsent("e1|email", struct{}{}) {
		t.Fatalf("claim should succeed after expiry")
	}
}
