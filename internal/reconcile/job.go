package reconcile

import (
	"context"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
)

// JobName identifies the reconcile sweep in the cron registry.
const JobName = "reconcile"

// runner is the subset of Loop the cron job needs.
type runner interface {
	Run(ctx context.Context, trigger string) (*Result, error)
}

// Job adapts the reconcile loop to the cron registry.
type Job struct {
	loop runner
}

// NewJob wraps a reconcile loop as a cron job.
func NewJob(loop runner) *Job {
	return &Job{loop: loop}
}

func (j *Job) Name() string {
	return JobName
}

func (j *Job) Run(ctx context.Context) error {
	_, err := j.loop.Run(ctx, models.ReconcileTriggerScheduled)
	return err
}
