package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/internal/rules"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

// stateStore lists the damaged inventory records to sweep.
type stateStore interface {
	ListAll(ctx context.Context) ([]models.DamagedInventory, error)
}

// pipeline re-syncs a single record and applies rules per product.
type pipeline interface {
	Sync(ctx context.Context, inventoryItemID int64, source string) (*inventory.ProcessResult, error)
	ApplyRules(ctx context.Context, productID int64) (rules.Outcome, error)
}

// Result summarizes one reconcile pass.
type Result struct {
	RunID     string `json:"run_id"`
	Trigger   string `json:"trigger"`
	Inspected int    `json:"inspected"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
}

// LoopParams carries the dependencies for a reconcile loop.
type LoopParams struct {
	Store    stateStore
	Pipeline pipeline
	Runs     RunStore
	Logger   *logger.Logger
}

// Loop sweeps every tracked record against the upstream and re-applies
// the publication rules once per product.
type Loop struct {
	store    stateStore
	pipeline pipeline
	runs     RunStore
	logger   *logger.Logger
	now      func() time.Time
}

// NewLoop validates params and builds a reconcile loop.
func NewLoop(params LoopParams) (*Loop, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("reconcile: store is required")
	}
	if params.Pipeline == nil {
		return nil, fmt.Errorf("reconcile: pipeline is required")
	}
	if params.Runs == nil {
		return nil, fmt.Errorf("reconcile: run store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("reconcile: logger is required")
	}
	return &Loop{
		store:    params.Store,
		pipeline: params.Pipeline,
		runs:     params.Runs,
		logger:   params.Logger,
		now:      time.Now,
	}, nil
}

// Run executes one full pass. A failure on one record never stops the
// sweep; the record counts as skipped and the pass moves on.
func (l *Loop) Run(ctx context.Context, trigger string) (*Result, error) {
	run := &models.ReconcileRun{
		Trigger:   trigger,
		StartedAt: l.now().UTC(),
	}
	if err := l.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create reconcile run: %w", err)
	}

	ctx = l.logger.WithFields(ctx, map[string]any{
		"run_id":  run.ID.String(),
		"trigger": trigger,
	})
	l.logger.Info(ctx, "reconcile pass started")

	result := &Result{RunID: run.ID.String(), Trigger: trigger}
	sweepErr := l.sweep(ctx, result)

	now := l.now().UTC()
	run.FinishedAt = &now
	run.Inspected = result.Inspected
	run.Updated = result.Updated
	run.Skipped = result.Skipped
	if sweepErr != nil {
		msg := sweepErr.Error()
		run.Error = &msg
	}
	if err := l.runs.Finish(ctx, run); err != nil {
		l.logger.Error(ctx, "persist reconcile run result", err)
	}

	l.logger.Info(ctx, fmt.Sprintf(
		"reconcile pass finished inspected=%d updated=%d skipped=%d",
		result.Inspected, result.Updated, result.Skipped))
	return result, sweepErr
}

func (l *Loop) sweep(ctx context.Context, result *Result) error {
	records, err := l.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list damaged inventory: %w", err)
	}

	// Rules run once per product after its records are re-synced, so a
	// product with several damaged variants is mutated a single time.
	products := make(map[int64]bool)
	order := make([]int64, 0, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Inspected++

		res, err := l.pipeline.Sync(ctx, rec.InventoryItemID, models.SourceReconcile)
		if err != nil {
			itemCtx := l.logger.WithInventoryItemID(ctx, rec.InventoryItemID)
			l.logger.Error(itemCtx, "reconcile record sync failed", err)
			result.Skipped++
			continue
		}
		if res.Skipped {
			result.Skipped++
			continue
		}
		result.Updated++

		productID := res.Record.ProductID
		if !products[productID] {
			products[productID] = true
			order = append(order, productID)
		}
	}

	for _, productID := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := l.pipeline.ApplyRules(ctx, productID); err != nil {
			prodCtx := l.logger.WithProductID(ctx, productID)
			l.logger.Error(prodCtx, "reconcile rule application failed", err)
		}
	}
	return nil
}
