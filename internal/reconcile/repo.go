package reconcile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/db"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
)

// RunStore persists reconcile run records.
type RunStore interface {
	Create(ctx context.Context, run *models.ReconcileRun) error
	Finish(ctx context.Context, run *models.ReconcileRun) error
	LastRun(ctx context.Context) (*models.ReconcileRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reconcile run store bound to the provided DB.
func NewRepository(db *gorm.DB) RunStore {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *models.ReconcileRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) Finish(ctx context.Context, run *models.ReconcileRun) error {
	return r.db.WithContext(ctx).
		Model(&models.ReconcileRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"finished_at": run.FinishedAt,
			"inspected":   run.Inspected,
			"updated":     run.Updated,
			"skipped":     run.Skipped,
			"error":       run.Error,
		}).Error
}

func (r *repository) LastRun(ctx context.Context) (*models.ReconcileRun, error) {
	var run models.ReconcileRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
