package inventory

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
)

// Change is one observed state of a damaged variant. Optional fields are
// pointers so an omitted value is distinguishable from a zero value: an
// omitted field never clears what the store already knows.
type Change struct {
	InventoryItemID int64
	ProductID       int64
	VariantID       int64
	Handle          string
	Source          string

	ConditionKey *string
	ConditionRaw *string
	Available    *int
	Title        *string
	SKU          *string
	Barcode      *string
}

// StateStore defines persistence for damaged inventory records.
type StateStore interface {
	Merge(ctx context.Context, change Change) (*models.DamagedInventory, error)
	Get(ctx context.Context, inventoryItemID int64) (*models.DamagedInventory, error)
	ListAll(ctx context.Context) ([]models.DamagedInventory, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.DamagedInventory, error)
	List(ctx context.Context, filter ListFilter) ([]models.DamagedInventory, error)
}

// ListFilter narrows admin list reads.
type ListFilter struct {
	Limit   int
	InStock *bool
}

// Repository is the gorm-backed StateStore.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Merge applies the change as a single INSERT ... ON CONFLICT DO UPDATE so
// concurrent merges for the same key serialize inside the database. Only
// fields present on the change are assigned on conflict, so a sparse webhook
// payload cannot erase condition or availability learned earlier.
func (r *Repository) Merge(ctx context.Context, change Change) (*models.DamagedInventory, error) {
	now := time.Now().UTC()

	row := models.DamagedInventory{
		InventoryItemID: change.InventoryItemID,
		ProductID:       change.ProductID,
		VariantID:       change.VariantID,
		Handle:          change.Handle,
		ConditionKey:    change.ConditionKey,
		ConditionRaw:    change.ConditionRaw,
		Title:           change.Title,
		SKU:             change.SKU,
		Barcode:         change.Barcode,
		LastSource:      change.Source,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if change.Available != nil {
		row.Available = *change.Available
	}

	assignments := map[string]any{
		"product_id":  change.ProductID,
		"variant_id":  change.VariantID,
		"handle":      change.Handle,
		"last_source": change.Source,
		"updated_at":  now,
	}
	if change.ConditionKey != nil {
		assignments["condition_key"] = *change.ConditionKey
	}
	if change.ConditionRaw != nil {
		assignments["condition_raw"] = *change.ConditionRaw
	}
	if change.Available != nil {
		assignments["available"] = *change.Available
	}
	if change.Title != nil {
		assignments["title"] = *change.Title
	}
	if change.SKU != nil {
		assignments["sku"] = *change.SKU
	}
	if change.Barcode != nil {
		assignments["barcode"] = *change.Barcode
	}
	switch change.Source {
	case models.SourceWebhook:
		row.LastNotificationAt = &now
		assignments["last_notification_at"] = now
	case models.SourceReconcile:
		row.LastSyncAt = &now
		assignments["last_sync_at"] = now
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "inventory_item_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	var merged models.DamagedInventory
	if err := r.db.WithContext(ctx).First(&merged, "inventory_item_id = ?", change.InventoryItemID).Error; err != nil {
		return nil, err
	}
	return &merged, nil
}

// Get loads one record by inventory item id.
func (r *Repository) Get(ctx context.Context, inventoryItemID int64) (*models.DamagedInventory, error) {
	var record models.DamagedInventory
	if err := r.db.WithContext(ctx).First(&record, "inventory_item_id = ?", inventoryItemID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListAll returns every tracked record, ordered by product for stable
// reconcile passes.
func (r *Repository) ListAll(ctx context.Context) ([]models.DamagedInventory, error) {
	var records []models.DamagedInventory
	err := r.db.WithContext(ctx).
		Order("product_id, inventory_item_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListByProduct returns all records sharing a product id.
func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]models.DamagedInventory, error) {
	var records []models.DamagedInventory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("inventory_item_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// List applies the admin list filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.DamagedInventory, error) {
	q := r.db.WithContext(ctx).Order("product_id, inventory_item_id")
	if filter.InStock != nil {
		if *filter.InStock {
			q = q.Where("available > 0")
		} else {
			q = q.Where("available = 0")
		}
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var records []models.DamagedInventory
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
