package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/types"
)

type stubLister struct {
	records []models.DamagedInventory
	filter  inventory.ListFilter
	err     error
}

func (s *stubLister) List(ctx context.Context, filter inventory.ListFilter) ([]models.DamagedInventory, error) {
	s.filter = filter
	return s.records, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
}

func TestAdminListInventoryAppliesFilters(t *testing.T) {
	cond := models.ConditionLight
	store := &stubLister{records: []models.DamagedInventory{
		{InventoryItemID: 11, ProductID: 1, VariantID: 101, Handle: "widget-damaged", ConditionKey: &cond, Available: 2, LastSource: models.SourceWebhook},
	}}
	handler := AdminListInventory(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/inventory?limit=10&in_stock=true", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if store.filter.Limit != 10 {
		t.Fatalf("limit not forwarded: %+v", store.filter)
	}
	if store.filter.InStock == nil || !*store.filter.InStock {
		t.Fatalf("in_stock not forwarded: %+v", store.filter)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["count"].(float64) != 1 {
		t.Fatalf("unexpected count: %v", data["count"])
	}
	records := data["records"].([]any)
	first := records[0].(map[string]any)
	if first["in_stock"] != true || first["condition_key"] != models.ConditionLight {
		t.Fatalf("unexpected record: %v", first)
	}
}

func TestAdminListInventoryRejectsBadLimit(t *testing.T) {
	handler := AdminListInventory(&stubLister{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/inventory?limit=nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminListInventoryMapsStoreFailure(t *testing.T) {
	handler := AdminListInventory(&stubLister{err: errors.New("db down")}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/inventory", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
