package shopifywebhook

import (
	"context"

	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
)

// InventoryLevelEvent is the payload of an inventory_levels/update delivery.
type InventoryLevelEvent struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

// Delivery carries the event plus the optional headers that accompany it.
type Delivery struct {
	Event      InventoryLevelEvent
	DeliveryID string
	ItemIDHint string
}

type pipeline interface {
	Process(ctx context.Context, inventoryItemID int64, source string) (*inventory.ProcessResult, error)
}

type admitter interface {
	Admit(ctx context.Context, deliveryID string) bool
	Release(ctx context.Context, deliveryID string)
}

// ServiceParams wires the webhook service dependencies.
type ServiceParams struct {
	Pipeline pipeline
	Guard    admitter
	Logger   *logger.Logger
	Metrics  *metrics.PipelineMetrics
}

// Service turns admitted inventory-level deliveries into pipeline runs.
type Service struct {
	pipeline pipeline
	guard    admitter
	logger   *logger.Logger
	metrics  *metrics.PipelineMetrics
}

// NewService validates and builds the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Pipeline == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pipeline required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		pipeline: params.Pipeline,
		guard:    params.Guard,
		logger:   params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleDelivery processes one delivery end to end. The returned error is
// informational: the HTTP boundary absorbs everything except signature
// failures, which never reach this service.
func (s *Service) HandleDelivery(ctx context.Context, delivery Delivery) error {
	event := delivery.Event
	if event.InventoryItemID == 0 {
		s.count(metrics.DeliveryFailed)
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory_item_id missing from payload")
	}

	ctx = s.logger.WithInventoryItemID(ctx, event.InventoryItemID)
	if delivery.DeliveryID != "" {
		ctx = s.logger.WithField(ctx, "delivery_id", delivery.DeliveryID)
	}
	// Header hints are observational only; the pipeline re-resolves the
	// variant and trusts upstream state, not the notification.
	if delivery.ItemIDHint != "" {
		ctx = s.logger.WithField(ctx, "item_id_hint", delivery.ItemIDHint)
	}
	if event.Available != nil {
		ctx = s.logger.WithField(ctx, "available_payload", *event.Available)
	}

	if !s.guard.Admit(ctx, delivery.DeliveryID) {
		s.count(metrics.DeliveryDuplicate)
		s.logger.Info(ctx, "duplicate delivery suppressed")
		return nil
	}
	s.count(metrics.DeliveryAdmitted)

	result, err := s.pipeline.Process(ctx, event.InventoryItemID, models.SourceWebhook)
	if err != nil {
		// Forget the delivery id so the upstream retry is admitted instead
		// of suppressed for the full retention TTL.
		s.guard.Release(ctx, delivery.DeliveryID)
		s.count(metrics.DeliveryFailed)
		return err
	}
	if result.Skipped {
		s.logger.Info(ctx, "delivery processed as no-op: "+result.SkipReason)
		return nil
	}

	s.logger.Info(ctx, "delivery processed")
	return nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncDelivery(outcome)
	}
}
