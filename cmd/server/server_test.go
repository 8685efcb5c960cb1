package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Spinergy/internal/api/auth"
	"github.com/codr1/Spinergy/internal/booking"
	"github.com/codr1/Spinergy/internal/config"
	"github.com/codr1/Spinergy/internal/events"
	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/pricing"
	"github.com/codr1/Spinergy/internal/testutil"
)

func newTestApp(t *testing.T) (*config.Config, *app) {
	t.Helper()

	cfg := config.Default()
	database := testutil.NewTestDB(t)
	resolver, err := newResolver(cfg.Club)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	prices, err := pricing.NewCachedProvider(database, pricing.Config{})
	if err != nil {
		t.Fatalf("pricing provider: %v", err)
	}
	bus := events.NewLocalBus(16, 1)
	a := &app{
		db:       database,
		resolver: resolver,
		prices:   prices,
		bus:      bus,
		admin:    auth.NewAdminAuth(""),
		guard: booking.NewGuard(booking.Config{
			Resolver: resolver,
			Store:    database,
			Pricing:  prices,
			Events:   bus,
		}),
		ready: []readyCheck{{name: "database", check: database.Ready}},
	}
	return cfg, a
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	cfg, a := newTestApp(t)
	handler := newServer(cfg, a).Handler

	if rec := do(t, handler, http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}

	rec := do(t, handler, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected middleware chain to assign a request id")
	}

	if rec := do(t, handler, http.MethodGet, "/api/v1/resources", ""); rec.Code != http.StatusOK {
		t.Fatalf("resources: %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/api/v1/operating-hours", ""); rec.Code != http.StatusOK {
		t.Fatalf("operating hours: %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/api/v1/pricing?resource_id=table_b&duration=60", ""); rec.Code != http.StatusOK {
		t.Fatalf("pricing: %d", rec.Code)
	}

	// A booking made through the router can be cancelled through its path parameter.
	tomorrow := models.DateOf(time.Now().In(a.resolver.Location())).AddDays(1)
	body := `{"ownerRef":"owner-1","customer":{"name":"Bilal","phone":"03001234567"},"slots":[` +
		`{"resourceId":"table_a","date":"` + tomorrow.String() + `","startTime":"18:00","durationMinutes":60}]}`
	rec = do(t, handler, http.MethodPost, "/api/v1/bookings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Results []struct {
			Reservation models.Reservation `json:"reservation"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	id := submitted.Results[0].Reservation.ID

	if rec := do(t, handler, http.MethodGet, "/api/v1/slots?resource_id=table_a&date="+tomorrow.String()+"&duration=60", ""); rec.Code != http.StatusOK {
		t.Fatalf("slots: %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/api/v1/bookings/"+id+"/cancel", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET cancel, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/bookings/"+id+"/cancel", `{"ownerRef":"owner-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 cancel, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, handler, http.MethodPost, "/api/v1/admin/pricing/invalidate", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected admin endpoint disabled without hash, got %d", rec.Code)
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	_, a := newTestApp(t)
	a.ready = append(a.ready, readyCheck{name: "redis", check: func(context.Context) error {
		return errors.New("connection refused")
	}})

	rec := httptest.NewRecorder()
	handleReady(a)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected checks: %+v", resp.Checks)
	}
}

func TestNewResolverRejectsBadPolicy(t *testing.T) {
	club := config.Default().Club
	club.ConflictPolicy = "first_come"
	if _, err := newResolver(club); err == nil {
		t.Fatal("expected unknown conflict policy to fail")
	}
}

func TestPricingDefaultsFromConfig(t *testing.T) {
	rules := pricingDefaults(config.PricingConfig{
		Currency: "PKR",
		Rules:    []config.PricingRuleConfig{{Resource: "table_a", Duration: 60, Coaching: true, Amount: 1300}},
	})
	if len(rules) != 1 || rules[0].Amount != 1300 || !rules[0].Coaching || rules[0].Currency != "PKR" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}
