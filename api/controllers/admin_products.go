package controllers

import (
	"context"
	"net/http"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	"github.com/kitchenartsandletters/damaged-books-service/api/validators"
	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/internal/rules"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

type checkPipeline interface {
	Process(ctx context.Context, inventoryItemID int64, source string) (*inventory.ProcessResult, error)
}

type checkRequest struct {
	InventoryItemID int64 `json:"inventory_item_id" validate:"required,gt=0"`
}

type checkResponse struct {
	InventoryItemID int64            `json:"inventory_item_id"`
	Skipped         bool             `json:"skipped"`
	SkipReason      string           `json:"skip_reason,omitempty"`
	Record          *inventoryRecord `json:"record,omitempty"`
	Outcome         *rules.Outcome   `json:"outcome,omitempty"`
}

// AdminCheckProduct runs the pipeline for one inventory item on demand.
func AdminCheckProduct(pipeline checkPipeline, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pipeline unavailable"))
			return
		}

		var req checkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := pipeline.Process(r.Context(), req.InventoryItemID, models.SourceReconcile)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkResponse{
			InventoryItemID: req.InventoryItemID,
			Skipped:         result.Skipped,
			SkipReason:      result.SkipReason,
		}
		if result.Record != nil {
			rec := result.Record
			resp.Record = &inventoryRecord{
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
			}
			outcome := result.Outcome
			resp.Outcome = &outcome
		}
		responses.WriteSuccess(w, resp)
	}
}
