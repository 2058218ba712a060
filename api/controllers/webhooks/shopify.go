package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	shopifywebhook "github.com/kitchenartsandletters/damaged-books-service/internal/webhooks/shopify"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
)

const (
	hmacHeader       = "X-Shopify-Hmac-Sha256"
	deliveryIDHeader = "X-Shopify-Webhook-Id"
	itemIDHeader     = "X-Shopify-Inventory-Item-Id"
)

type ShopifyWebhookService interface {
	HandleDelivery(ctx context.Context, delivery shopifywebhook.Delivery) error
}

type signatureVerifier interface {
	VerifyWebhook(payload []byte, header string) bool
}

// ShopifyInventoryLevels handles inventory_levels/update deliveries. A bad
// signature is the only rejected request; every downstream failure is
// absorbed with a 200 so Shopify does not retry against a broken pipeline.
func ShopifyInventoryLevels(svc ShopifyWebhookService, verifier signatureVerifier, pm *metrics.PipelineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "read webhook body", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if !verifier.VerifyWebhook(payload, r.Header.Get(hmacHeader)) {
			if pm != nil {
				pm.IncDelivery(metrics.DeliveryBadSignature)
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch"))
			return
		}

		var event shopifywebhook.InventoryLevelEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			if logg != nil {
				logg.Error(ctx, "decode inventory level payload", err)
			}
			if pm != nil {
				pm.IncDelivery(metrics.DeliveryFailed)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		delivery := shopifywebhook.Delivery{
			Event:      event,
			DeliveryID: strings.TrimSpace(r.Header.Get(deliveryIDHeader)),
			ItemIDHint: strings.TrimSpace(r.Header.Get(itemIDHeader)),
		}

		if err := svc.HandleDelivery(ctx, delivery); err != nil {
			if logg != nil {
				logg.Error(ctx, "inventory level delivery failed", err)
			}
		}
		responses.WriteSuccess(w, nil)
	}
}
