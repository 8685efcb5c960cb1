package resources

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/codr1/Spinergy/internal/models"
	"github.com/codr1/Spinergy/internal/testutil"
)

func resetHandlers(t *testing.T, l Lister) {
	t.Helper()
	lister = nil
	listerOnce = sync.Once{}
	InitHandlers(l)
	t.Cleanup(func() {
		lister = nil
		listerOnce = sync.Once{}
	})
}

type failingLister struct{}

func (failingLister) Resources(ctx context.Context) ([]models.Resource, error) {
	return nil, errors.New("database is locked")
}

func TestHandleListResourcesReturnsSeededTables(t *testing.T) {
	database := testutil.NewTestDB(t)
	resetHandlers(t, database)

	rec := httptest.NewRecorder()
	HandleListResources(rec, httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp resourcesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Resources) != 2 || resp.Resources[0].ID != "table_a" || resp.Resources[1].ID != "table_b" {
		t.Fatalf("expected table_a and table_b in order, got %+v", resp.Resources)
	}
}

func TestHandleListResourcesHidesInactive(t *testing.T) {
	database := testutil.NewTestDB(t)
	if err := database.Queries.SetResourceActive(context.Background(), "table_b", false); err != nil {
		t.Fatalf("deactivate table_b: %v", err)
	}
	resetHandlers(t, database)

	rec := httptest.NewRecorder()
	HandleListResources(rec, httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil))

	var resp resourcesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Resources) != 1 || resp.Resources[0].ID != "table_a" {
		t.Fatalf("expected only table_a, got %+v", resp.Resources)
	}
}

func TestHandleListResourcesStoreFailure(t *testing.T) {
	resetHandlers(t, failingLister{})

	rec := httptest.NewRecorder()
	HandleListResources(rec, httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
