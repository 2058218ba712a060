package models

import "time"

// Source values stamped on damaged inventory writes.
const (
	SourceWebhook   = "webhook"
	SourceReconcile = "reconcile"
)

// Condition keys normalized from the upstream variant option set.
const (
	ConditionLight    = "light_damage"
	ConditionModerate = "moderate_damage"
	ConditionHeavy    = "heavy_damage"
)

// DamagedInventory is the persisted record for one damaged variant, keyed by
// the upstream inventory item id. Nullable columns stay nullable so a merge
// that lacks a value never erases a known one.
type DamagedInventory struct {
	InventoryItemID    int64      `gorm:"column:inventory_item_id;primaryKey;autoIncrement:false"`
	ProductID          int64      `gorm:"column:product_id;not null"`
	VariantID          int64      `gorm:"column:variant_id;not null"`
	Handle             string     `gorm:"column:handle;not null"`
	ConditionKey       *string    `gorm:"column:condition_key"`
	ConditionRaw       *string    `gorm:"column:condition_raw"`
	Available          int        `gorm:"column:available;not null;default:0"`
	Title              *string    `gorm:"column:title"`
	SKU                *string    `gorm:"column:sku"`
	Barcode            *string    `gorm:"column:barcode"`
	LastSource         string     `gorm:"column:last_source;not null"`
	LastSyncAt         *time.Time `gorm:"column:last_sync_at"`
	LastNotificationAt *time.Time `gorm:"column:last_notification_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (DamagedInventory) TableName() string { return "damaged_inventory" }

// InStock reports whether this variant has known stock.
func (d DamagedInventory) InStock() bool { return d.Available > 0 }
