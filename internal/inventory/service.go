package inventory

import (
	"context"
	"errors"

	"github.com/kitchenartsandletters/damaged-books-service/internal/classifier"
	"github.com/kitchenartsandletters/damaged-books-service/internal/resolver"
	"github.com/kitchenartsandletters/damaged-books-service/internal/rules"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

// Skip reasons reported by Process.
const (
	SkipNotFound   = "not_found"
	SkipNotDamaged = "not_damaged"
)

// Identifier resolution surface used by the pipeline.
type IdentityResolver interface {
	Resolve(ctx context.Context, inventoryItemID int64) (*resolver.Identity, error)
}

// ConditionClassifier derives a damage condition, nil meaning not damaged.
type ConditionClassifier interface {
	Classify(variant shopify.Variant, product *shopify.Product) *classifier.Condition
}

// RuleApplier runs the per-product decision table.
type RuleApplier interface {
	Apply(ctx context.Context, agg rules.Aggregate) (rules.Outcome, error)
}

// ProcessResult is the outcome of one pipeline run for one inventory item.
type ProcessResult struct {
	Skipped    bool
	SkipReason string
	Record     *models.DamagedInventory
	Outcome    rules.Outcome
}

// ServiceParams wires the pipeline dependencies.
type ServiceParams struct {
	Resolver   IdentityResolver
	Classifier ConditionClassifier
	Store      StateStore
	Rules      RuleApplier
	Logger     *logger.Logger
	Metrics    *metrics.PipelineMetrics
}

// Service chains resolve, classify, merge, and rule application. Both the
// webhook handler and the reconcile loop run every record through it, so the
// two triggers cannot diverge state.
type Service struct {
	resolver   IdentityResolver
	classifier ConditionClassifier
	store      StateStore
	rules      RuleApplier
	logger     *logger.Logger
	metrics    *metrics.PipelineMetrics
}

// NewService validates and builds the pipeline service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	}
	if params.Classifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "classifier required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state store required")
	}
	if params.Rules == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rule engine required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		resolver:   params.Resolver,
		classifier: params.Classifier,
		store:      params.Store,
		rules:      params.Rules,
		logger:     params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Process runs the full pipeline for one inventory item. A nil error with
// Skipped set means the item is not a tracked damaged variant; a non-nil
// error after a successful merge means one or more rule side effects failed
// while the merge itself stuck.
func (s *Service) Process(ctx context.Context, inventoryItemID int64, source string) (*ProcessResult, error) {
	result, err := s.Sync(ctx, inventoryItemID, source)
	if err != nil || result.Skipped {
		return result, err
	}

	outcome, ruleErr := s.ApplyRules(ctx, result.Record.ProductID)
	result.Outcome = outcome
	return result, ruleErr
}

// Sync resolves, classifies, and merges one inventory item without touching
// upstream state. The reconcile loop uses it to sweep records first and apply
// rules once per product afterwards.
func (s *Service) Sync(ctx context.Context, inventoryItemID int64, source string) (*ProcessResult, error) {
	ctx = s.logger.WithInventoryItemID(ctx, inventoryItemID)
	ctx = s.logger.WithField(ctx, "source", source)

	identity, err := s.resolver.Resolve(ctx, inventoryItemID)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			s.logger.Info(ctx, "inventory item not found upstream, skipping")
			return &ProcessResult{Skipped: true, SkipReason: SkipNotFound}, nil
		}
		return nil, err
	}

	cond := s.classifier.Classify(identity.Variant, identity.Product)
	if cond == nil {
		s.logger.Info(ctx, "variant is not a damaged product, skipping")
		return &ProcessResult{Skipped: true, SkipReason: SkipNotDamaged}, nil
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"condition": cond.Key,
		"strategy":  cond.Strategy,
	})

	change := changeFromIdentity(identity, cond, source)
	record, err := s.store.Merge(ctx, change)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge damaged inventory")
	}
	if s.metrics != nil {
		s.metrics.IncMerge()
	}

	return &ProcessResult{Record: record}, nil
}

// ApplyRules runs the decision table for one product against stored state.
func (s *Service) ApplyRules(ctx context.Context, productID int64) (rules.Outcome, error) {
	siblings, err := s.store.ListByProduct(ctx, productID)
	if err != nil {
		return rules.Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product aggregate")
	}
	agg := NewProductAggregate(productID, siblings)

	outcome, ruleErr := s.rules.Apply(ctx, rules.Aggregate{
		ProductID: agg.ProductID,
		Handle:    agg.Handle(),
		InStock:   agg.InStock(),
	})
	if ruleErr != nil {
		s.logger.Error(ctx, "rule application finished with failures", ruleErr)
	}
	return outcome, ruleErr
}

func changeFromIdentity(identity *resolver.Identity, cond *classifier.Condition, source string) Change {
	variant := identity.Variant
	available := variant.InventoryQuantity

	change := Change{
		InventoryItemID: variant.InventoryItemID,
		ProductID:       variant.ProductID,
		VariantID:       variant.ID,
		Handle:          identity.Handle,
		Source:          source,
		ConditionKey:    &cond.Key,
		ConditionRaw:    &cond.Raw,
		Available:       &available,
	}
	if variant.Title != "" {
		change.Title = &variant.Title
	}
	if variant.SKU != "" {
		change.SKU = &variant.SKU
	}
	if variant.Barcode != "" {
		change.Barcode = &variant.Barcode
	}
	return change
}
