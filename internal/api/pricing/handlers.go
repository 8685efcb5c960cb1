// internal/api/pricing/handlers.go
package pricing

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/models"
	pricingsvc "github.com/codr1/Spinergy/internal/pricing"
)

// Quoter is satisfied by pricingsvc.CachedProvider.
type Quoter interface {
	pricingsvc.Provider
	Rules(ctx context.Context) (map[models.PriceKey]models.PricingRule, string)
	Invalidate()
}

var (
	quoter     Quoter
	quoterOnce sync.Once
)

type quoteResponse struct {
	ResourceID      string `json:"resourceId"`
	DurationMinutes int    `json:"durationMinutes"`
	Coaching        bool   `json:"coaching"`
	pricingsvc.Quote
}

type invalidateResponse struct {
	Source string `json:"source"`
	Rules  int    `json:"rules"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q Quoter) {
	if q == nil {
		return
	}
	quoterOnce.Do(func() {
		quoter = q
	})
}

// GET /api/v1/pricing?resource_id=table_a&duration=60&coaching=true
func HandleQuote(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if quoter == nil {
		logger.Error().Msg("Pricing provider not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	resourceID, err := apiutil.RequireField(query.Get("resource_id"), "resource_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	duration, err := apiutil.ParsePositiveIntField(query.Get("duration"), "duration")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	coaching, err := apiutil.ParseBoolField(query.Get("coaching"), "coaching")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	quote, err := quoter.Price(r.Context(), resourceID, duration, coaching)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resp := quoteResponse{
		ResourceID:      resourceID,
		DurationMinutes: duration,
		Coaching:        coaching,
		Quote:           quote,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write quote response")
	}
}

// POST /api/v1/admin/pricing/invalidate
func HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if quoter == nil {
		logger.Error().Msg("Pricing provider not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	quoter.Invalidate()

	// Reload eagerly so the response reports what customers will now be quoted.
	rules, source := quoter.Rules(r.Context())
	logger.Info().Str("source", source).Int("rules", len(rules)).Msg("Pricing cache invalidated")

	if err := apiutil.WriteJSON(w, http.StatusOK, invalidateResponse{Source: source, Rules: len(rules)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write invalidate response")
	}
}
