package models

import (
	"time"

	"github.com/google/uuid"
)

// Reconcile run triggers.
const (
	ReconcileTriggerScheduled = "scheduled"
	ReconcileTriggerManual    = "manual"
)

// ReconcileRun records one full sweep over tracked damaged inventory.
type ReconcileRun struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Trigger    string     `gorm:"column:trigger;not null"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	Inspected  int        `gorm:"column:inspected;not null;default:0"`
	Updated    int        `gorm:"column:updated;not null;default:0"`
	Skipped    int        `gorm:"column:skipped;not null;default:0"`
	Error      *string    `gorm:"column:error"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (ReconcileRun) TableName() string { return "reconcile_runs" }
