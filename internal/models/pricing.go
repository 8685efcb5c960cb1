package models

// PricingRule is the price of one slot of a resource and duration, with or without the
// coaching add-on.
type PricingRule struct {
	ResourceID      string `json:"resourceId"`
	DurationMinutes int    `json:"durationMinutes"`
	Coaching        bool   `json:"coaching"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// PriceKey identifies a pricing rule.
type PriceKey struct {
	ResourceID      string
	DurationMinutes int
	Coaching        bool
}

func (r PricingRule) Key() PriceKey {
	return PriceKey{ResourceID: r.ResourceID, DurationMinutes: r.DurationMinutes, Coaching: r.Coaching}
}
