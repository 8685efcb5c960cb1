// internal/api/resources/handlers.go
package resources

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
	"github.com/codr1/Spinergy/internal/models"
)

const resourcesQueryTimeout = 5 * time.Second

// Lister returns the active tables in display order.
type Lister interface {
	Resources(ctx context.Context) ([]models.Resource, error)
}

var (
	lister     Lister
	listerOnce sync.Once
)

type resourcesResponse struct {
	Resources []models.Resource `json:"resources"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(l Lister) {
	if l == nil {
		return
	}
	listerOnce.Do(func() {
		lister = l
	})
}

// GET /api/v1/resources
func HandleListResources(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if lister == nil {
		logger.Error().Msg("Resource lister not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), resourcesQueryTimeout)
	defer cancel()

	list, err := lister.Resources(ctx)
	if err != nil {
		apiutil.WriteError(w, r, models.Infrastructure("list resources", err))
		return
	}
	if list == nil {
		list = []models.Resource{}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resourcesResponse{Resources: list}); err != nil {
		logger.Error().Err(err).Msg("Failed to write resources response")
	}
}
