package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
)

var repoDBSeq int

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	repoDBSeq++
	dsn := fmt.Sprintf("file:reconcile_test_%d?mode=memory&cache=shared", repoDBSeq)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS reconcile_runs (
  id TEXT PRIMARY KEY,
  "trigger" TEXT NOT NULL,
  started_at DATETIME NOT NULL,
  finished_at DATETIME,
  inspected INTEGER NOT NULL DEFAULT 0,
  updated INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  created_at DATETIME NOT NULL
);`
	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func TestRepositoryCreateAndFinish(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	ctx := context.Background()

	run := &models.ReconcileRun{
		Trigger:   models.ReconcileTriggerManual,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("Create should assign an ID")
	}

	now := time.Now().UTC()
	errMsg := "upstream unavailable"
	run.FinishedAt = &now
	run.Inspected = 10
	run.Updated = 7
	run.Skipped = 3
	run.Error = &errMsg
	if err := repo.Finish(ctx, run); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	last, err := repo.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last == nil {
		t.Fatal("expected a run")
	}
	if last.ID != run.ID {
		t.Fatalf("expected run %s, got %s", run.ID, last.ID)
	}
	if last.FinishedAt == nil || last.Inspected != 10 || last.Updated != 7 || last.Skipped != 3 {
		t.Fatalf("unexpected persisted run: %+v", last)
	}
	if last.Error == nil || *last.Error != errMsg {
		t.Fatalf("unexpected error field: %v", last.Error)
	}
}

func TestLastRunPicksNewestStart(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	ctx := context.Background()

	old := &models.ReconcileRun{
		Trigger:   models.ReconcileTriggerScheduled,
		StartedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.ReconcileRun{
		Trigger:   models.ReconcileTriggerManual,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("Create old: %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	last, err := repo.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last == nil || last.ID != newer.ID {
		t.Fatalf("expected newest run, got %+v", last)
	}
}

func TestLastRunEmptyTable(t *testing.T) {
	repo := NewRepository(newRepoDB(t))

	last, err := repo.LastRun(context.Background())
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil run, got %+v", last)
	}
}
