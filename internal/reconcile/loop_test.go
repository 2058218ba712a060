package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/internal/rules"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

type stubStore struct {
	records []models.DamagedInventory
	err     error
}

func (s *stubStore) ListAll(ctx context.Context) ([]models.DamagedInventory, error) {
	return s.records, s.err
}

type stubPipeline struct {
	syncResults map[int64]*inventory.ProcessResult
	syncErrs    map[int64]error
	syncCalls   []int64
	ruleCalls   []int64
	ruleErr     error
}

func (s *stubPipeline) Sync(ctx context.Context, id int64, source string) (*inventory.ProcessResult, error) {
	s.syncCalls = append(s.syncCalls, id)
	if err := s.syncErrs[id]; err != nil {
		return nil, err
	}
	if res, ok := s.syncResults[id]; ok {
		return res, nil
	}
	return &inventory.ProcessResult{Skipped: true, SkipReason: inventory.SkipNotFound}, nil
}

func (s *stubPipeline) ApplyRules(ctx context.Context, productID int64) (rules.Outcome, error) {
	s.ruleCalls = append(s.ruleCalls, productID)
	return rules.Outcome{}, s.ruleErr
}

type stubRuns struct {
	created   []*models.ReconcileRun
	finished  []*models.ReconcileRun
	createErr error
}

func (s *stubRuns) Create(ctx context.Context, run *models.ReconcileRun) error {
	if s.createErr != nil {
		return s.createErr
	}
	copied := *run
	s.created = append(s.created, &copied)
	return nil
}

func (s *stubRuns) Finish(ctx context.Context, run *models.ReconcileRun) error {
	copied := *run
	s.finished = append(s.finished, &copied)
	return nil
}

func (s *stubRuns) LastRun(ctx context.Context) (*models.ReconcileRun, error) {
	if len(s.finished) == 0 {
		return nil, nil
	}
	return s.finished[len(s.finished)-1], nil
}

type loopHelper struct {
	loop     *Loop
	store    *stubStore
	pipeline *stubPipeline
	runs     *stubRuns
}

func newLoopHelper(t *testing.T, records []models.DamagedInventory) *loopHelper {
	t.Helper()
	h := &loopHelper{
		store: &stubStore{records: records},
		pipeline: &stubPipeline{
			syncResults: make(map[int64]*inventory.ProcessResult),
			syncErrs:    make(map[int64]error),
		},
		runs: &stubRuns{},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	loop, err := NewLoop(LoopParams{
		Store:    h.store,
		Pipeline: h.pipeline,
		Runs:     h.runs,
		Logger:   logg,
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	h.loop = loop
	return h
}

func synced(productID int64) *inventory.ProcessResult {
	return &inventory.ProcessResult{
		Record: &models.DamagedInventory{ProductID: productID},
	}
}

func record(itemID, productID int64) models.DamagedInventory {
	return models.DamagedInventory{InventoryItemID: itemID, ProductID: productID}
}

func TestRunCountsEveryOutcome(t *testing.T) {
	h := newLoopHelper(t, []models.DamagedInventory{
		record(101, 1),
		record(102, 2),
		record(103, 3),
	})
	h.pipeline.syncResults[101] = synced(1)
	h.pipeline.syncErrs[102] = errors.New("upstream down")
	// 103 has no stub result, so Sync reports it skipped.

	res, err := h.loop.Run(context.Background(), models.ReconcileTriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Inspected != 3 || res.Updated != 1 || res.Skipped != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(h.pipeline.ruleCalls) != 1 || h.pipeline.ruleCalls[0] != 1 {
		t.Fatalf("expected rules for product 1 only, got %v", h.pipeline.ruleCalls)
	}
}

func TestRunAppliesRulesOncePerProduct(t *testing.T) {
	h := newLoopHelper(t, []models.DamagedInventory{
		record(201, 7),
		record(202, 7),
		record(203, 9),
	})
	h.pipeline.syncResults[201] = synced(7)
	h.pipeline.syncResults[202] = synced(7)
	h.pipeline.syncResults[203] = synced(9)

	res, err := h.loop.Run(context.Background(), models.ReconcileTriggerScheduled)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Updated != 3 {
		t.Fatalf("expected 3 updated, got %d", res.Updated)
	}
	if len(h.pipeline.ruleCalls) != 2 {
		t.Fatalf("expected one rule pass per product, got %v", h.pipeline.ruleCalls)
	}
	if h.pipeline.ruleCalls[0] != 7 || h.pipeline.ruleCalls[1] != 9 {
		t.Fatalf("unexpected rule order: %v", h.pipeline.ruleCalls)
	}
}

func TestRunRecordFailureDoesNotStopSweep(t *testing.T) {
	h := newLoopHelper(t, []models.DamagedInventory{
		record(301, 1),
		record(302, 2),
	})
	h.pipeline.syncErrs[301] = errors.New("resolve failed")
	h.pipeline.syncResults[302] = synced(2)

	res, err := h.loop.Run(context.Background(), models.ReconcileTriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.pipeline.syncCalls) != 2 {
		t.Fatalf("expected both records synced, got %v", h.pipeline.syncCalls)
	}
	if res.Skipped != 1 || res.Updated != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
}

func TestRunRuleFailureDoesNotFailPass(t *testing.T) {
	h := newLoopHelper(t, []models.DamagedInventory{record(401, 5)})
	h.pipeline.syncResults[401] = synced(5)
	h.pipeline.ruleErr = errors.New("redirect create failed")

	res, err := h.loop.Run(context.Background(), models.ReconcileTriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("merge should still count as updated: %+v", res)
	}
}

func TestRunPersistsRunRow(t *testing.T) {
	h := newLoopHelper(t, []models.DamagedInventory{record(501, 1)})
	h.pipeline.syncResults[501] = synced(1)

	if _, err := h.loop.Run(context.Background(), models.ReconcileTriggerScheduled); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.runs.created) != 1 || len(h.runs.finished) != 1 {
		t.Fatalf("expected one created and one finished run, got %d/%d",
			len(h.runs.created), len(h.runs.finished))
	}
	finished := h.runs.finished[0]
	if finished.FinishedAt == nil {
		t.Fatal("finished run missing finished_at")
	}
	if finished.Trigger != models.ReconcileTriggerScheduled {
		t.Fatalf("unexpected trigger %q", finished.Trigger)
	}
	if finished.Inspected != 1 || finished.Updated != 1 {
		t.Fatalf("unexpected persisted counts: %+v", finished)
	}
}

func TestRunListFailureRecordsError(t *testing.T) {
	h := newLoopHelper(t, nil)
	h.store.err = errors.New("db down")

	if _, err := h.loop.Run(context.Background(), models.ReconcileTriggerManual); err == nil {
		t.Fatal("expected error when listing fails")
	}
	if len(h.runs.finished) != 1 {
		t.Fatalf("run row should still be finished, got %d", len(h.runs.finished))
	}
	if h.runs.finished[0].Error == nil {
		t.Fatal("finished run should carry the sweep error")
	}
}
