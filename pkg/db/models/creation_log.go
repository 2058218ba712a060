package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Creation log statuses.
const (
	CreationStatusCreated = "created"
	CreationStatusDryRun  = "dry_run"
	CreationStatusFailed  = "failed"
)

// CreationLog is an append-only record of damaged product creation attempts,
// including dry runs. Rows are never updated after insert.
type CreationLog struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CanonicalHandle  string          `gorm:"column:canonical_handle;not null"`
	CanonicalTitle   *string         `gorm:"column:canonical_title"`
	CanonicalProduct int64           `gorm:"column:canonical_product_id;not null"`
	DamagedHandle    string          `gorm:"column:damaged_handle;not null"`
	DamagedProductID *int64          `gorm:"column:damaged_product_id"`
	VariantsJSON     json.RawMessage `gorm:"column:variants_json;type:jsonb"`
	Operator         string          `gorm:"column:operator;not null"`
	DryRun           bool            `gorm:"column:dry_run;not null;default:false"`
	Status           string          `gorm:"column:status;not null"`
	Message          *string         `gorm:"column:message"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CreationLog) TableName() string { return "creation_log" }
