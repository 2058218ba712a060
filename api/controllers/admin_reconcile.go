package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	"github.com/kitchenartsandletters/damaged-books-service/internal/reconcile"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

type reconcileRunner interface {
	Run(ctx context.Context, trigger string) (*reconcile.Result, error)
}

type reconcileRunReader interface {
	LastRun(ctx context.Context) (*models.ReconcileRun, error)
}

type reconcileRunView struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Inspected  int        `json:"inspected"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Error      *string    `json:"error,omitempty"`
}

// AdminRunReconcile triggers a full sweep synchronously and returns its counts.
func AdminRunReconcile(loop reconcileRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if loop == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile loop unavailable"))
			return
		}

		result, err := loop.Run(r.Context(), models.ReconcileTriggerManual)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run reconcile"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminLastReconcile returns the most recent run snapshot.
func AdminLastReconcile(runs reconcileRunReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile store unavailable"))
			return
		}

		run, err := runs.LastRun(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last reconcile run"))
			return
		}
		if run == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no reconcile runs recorded"))
			return
		}
		responses.WriteSuccess(w, reconcileRunView{
			ID:         run.ID.String(),
			Trigger:    run.Trigger,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Inspected:  run.Inspected,
			Updated:    run.Updated,
			Skipped:    run.Skipped,
			Error:      run.Error,
		})
	}
}
