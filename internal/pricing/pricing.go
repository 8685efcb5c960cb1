// Package pricing quotes slot prices from the pricing_rules table through a TTL cache,
// falling back to the built-in club price list when the store is unavailable.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/cache"
	"github.com/codr1/Spinergy/internal/models"
)

const (
	DefaultCurrency = "PKR"
	DefaultTTL      = 5 * time.Minute

	SourceStore    = "store"
	SourceDefaults = "defaults"
)

// DefaultRules is the club price list used when no rule can be loaded.
var DefaultRules = []models.PricingRule{
	{ResourceID: "table_a", DurationMinutes: 30, Coaching: false, Amount: 500, Currency: DefaultCurrency},
	{ResourceID: "table_a", DurationMinutes: 30, Coaching: true, Amount: 700, Currency: DefaultCurrency},
	{ResourceID: "table_a", DurationMinutes: 60, Coaching: false, Amount: 1000, Currency: DefaultCurrency},
	{ResourceID: "table_a", DurationMinutes: 60, Coaching: true, Amount: 1200, Currency: DefaultCurrency},
	{ResourceID: "table_b", DurationMinutes: 30, Coaching: false, Amount: 400, Currency: DefaultCurrency},
	{ResourceID: "table_b", DurationMinutes: 30, Coaching: true, Amount: 600, Currency: DefaultCurrency},
	{ResourceID: "table_b", DurationMinutes: 60, Coaching: false, Amount: 800, Currency: DefaultCurrency},
	{ResourceID: "table_b", DurationMinutes: 60, Coaching: true, Amount: 1000, Currency: DefaultCurrency},
}

// Quote is the price stamped on a reservation.
type Quote struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Source   string `json:"source"`
}

// Provider prices one slot.
type Provider interface {
	Price(ctx context.Context, resourceID string, durationMinutes int, coaching bool) (Quote, error)
}

// RuleSource loads the full rule set.
type RuleSource interface {
	PricingRules(ctx context.Context) ([]models.PricingRule, error)
}

type Config struct {
	TTL      time.Duration
	Currency string
	Defaults []models.PricingRule
	Clock    clockwork.Clock
}

type ruleSet map[models.PriceKey]models.PricingRule

const rulesKey = "rules"

// CachedProvider serves prices from a cached snapshot of the rule source.
type CachedProvider struct {
	source   RuleSource
	cache    *cache.TTL[string, ruleSet]
	defaults ruleSet
	currency string
}

func NewCachedProvider(source RuleSource, cfg Config) (*CachedProvider, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	currency := cfg.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	defaults := cfg.Defaults
	if len(defaults) == 0 {
		defaults = DefaultRules
	}
	c, err := cache.NewTTL[string, ruleSet](1, ttl, cfg.Clock)
	if err != nil {
		return nil, fmt.Errorf("create pricing cache: %w", err)
	}
	return &CachedProvider{
		source:   source,
		cache:    c,
		defaults: index(defaults, currency),
		currency: currency,
	}, nil
}

func index(rules []models.PricingRule, currency string) ruleSet {
	out := make(ruleSet, len(rules))
	for _, rule := range rules {
		if rule.Currency == "" {
			rule.Currency = currency
		}
		out[rule.Key()] = rule
	}
	return out
}

// Rules returns the current rule set and where it came from. Store failures fall back to
// the defaults without caching them, so the next call retries the store.
func (p *CachedProvider) Rules(ctx context.Context) (map[models.PriceKey]models.PricingRule, string) {
	if rules, ok := p.cache.Get(rulesKey); ok {
		return rules, SourceStore
	}
	if p.source == nil {
		return p.defaults, SourceDefaults
	}
	loaded, err := p.source.PricingRules(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to load pricing rules, using defaults")
		return p.defaults, SourceDefaults
	}
	if len(loaded) == 0 {
		return p.defaults, SourceDefaults
	}
	rules := index(loaded, p.currency)
	p.cache.Add(rulesKey, rules)
	return rules, SourceStore
}

// Price quotes one slot. A combination without a rule is priced at zero, matching how the
// club front desk handles unpriced add-ons.
func (p *CachedProvider) Price(ctx context.Context, resourceID string, durationMinutes int, coaching bool) (Quote, error) {
	rules, source := p.Rules(ctx)
	key := models.PriceKey{ResourceID: resourceID, DurationMinutes: durationMinutes, Coaching: coaching}
	rule, ok := rules[key]
	if !ok {
		log.Ctx(ctx).Warn().
			Str("resource_id", resourceID).
			Int("duration_minutes", durationMinutes).
			Bool("coaching", coaching).
			Msg("No pricing rule found")
		return Quote{Amount: 0, Currency: p.currency, Source: source}, nil
	}
	return Quote{Amount: rule.Amount, Currency: rule.Currency, Source: source}, nil
}

// Invalidate drops the cached rule set so the next quote reloads it.
func (p *CachedProvider) Invalidate() {
	p.cache.Purge()
}
