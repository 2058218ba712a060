package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kitchenartsandletters/damaged-books-service/internal/reconcile"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/types"
)

type stubLoop struct {
	trigger string
	result  *reconcile.Result
	err     error
}

func (s *stubLoop) Run(ctx context.Context, trigger string) (*reconcile.Result, error) {
	s.trigger = trigger
	return s.result, s.err
}

type stubRuns struct {
	run *models.ReconcileRun
	err error
}

func (s *stubRuns) LastRun(ctx context.Context) (*models.ReconcileRun, error) {
	return s.run, s.err
}

func TestAdminRunReconcileUsesManualTrigger(t *testing.T) {
	loop := &stubLoop{result: &reconcile.Result{Inspected: 5, Updated: 3, Skipped: 2}}
	handler := AdminRunReconcile(loop, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if loop.trigger != models.ReconcileTriggerManual {
		t.Fatalf("expected manual trigger, got %q", loop.trigger)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["inspected"].(float64) != 5 || data["updated"].(float64) != 3 {
		t.Fatalf("unexpected counts: %v", data)
	}
}

func TestAdminLastReconcileReturnsSnapshot(t *testing.T) {
	now := time.Now().UTC()
	runs := &stubRuns{run: &models.ReconcileRun{
		ID:         uuid.New(),
		Trigger:    models.ReconcileTriggerScheduled,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: &now,
		Inspected:  9,
	}}
	handler := AdminLastReconcile(runs, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/reconcile/last", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["trigger"] != models.ReconcileTriggerScheduled || data["inspected"].(float64) != 9 {
		t.Fatalf("unexpected snapshot: %v", data)
	}
}

func TestAdminLastReconcileNotFound(t *testing.T) {
	handler := AdminLastReconcile(&stubRuns{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/reconcile/last", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
