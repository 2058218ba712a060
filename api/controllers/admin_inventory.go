package controllers

import (
	"context"
	"net/http"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	"github.com/kitchenartsandletters/damaged-books-service/api/validators"
	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

const (
	defaultInventoryLimit = 50
	maxInventoryLimit     = 500
)

type inventoryLister interface {
	List(ctx context.Context, filter inventory.ListFilter) ([]models.DamagedInventory, error)
}

type inventoryRecord struct {
	InventoryItemID int64   `json:"inventory_item_id"`
	ProductID       int64   `json:"product_id"`
	VariantID       int64   `json:"variant_id"`
	Handle          string  `json:"handle"`
	ConditionKey    *string `json:"condition_key,omitempty"`
	Available       int     `json:"available"`
	InStock         bool    `json:"in_stock"`
	LastSource      string  `json:"last_source"`
	Title           *string `json:"title,omitempty"`
	SKU             *string `json:"sku,omitempty"`
}

// AdminListInventory returns the persisted damaged inventory records.
func AdminListInventory(store inventoryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory store unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultInventoryLimit, 1, maxInventoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inStock, err := validators.ParseQueryBool(r, "in_stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := store.List(r.Context(), inventory.ListFilter{Limit: limit, InStock: inStock})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list damaged inventory"))
			return
		}

		out := make([]inventoryRecord, 0, len(records))
		for _, rec := range records {
			out = append(out, inventoryRecord{
				InventoryItemID: rec.InventoryItemID,
				ProductID:       rec.ProductID,
				VariantID:       rec.VariantID,
				Handle:          rec.Handle,
				ConditionKey:    rec.ConditionKey,
				Available:       rec.Available,
				InStock:         rec.InStock(),
				LastSource:      rec.LastSource,
				Title:           rec.Title,
				SKU:             rec.SKU,
			})
		}
		responses.WriteSuccess(w, map[string]any{"records": out, "count": len(out)})
	}
}
