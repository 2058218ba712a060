package rules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/kitchenartsandletters/damaged-books-service/internal/classifier"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

// Canonical metafield location on damaged products.
const (
	CanonicalNamespace = "custom"
	CanonicalKey       = "canonical_handle"
)

// Rule action labels for metrics.
const (
	ActionPublish        = "publish"
	ActionUnpublish      = "unpublish"
	ActionRedirectCreate = "redirect_create"
	ActionRedirectDelete = "redirect_delete"
	ActionCanonicalWrite = "canonical_write"
)

// Mutator is the upstream surface the engine writes through.
type Mutator interface {
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	SetPublished(ctx context.Context, productID int64, published bool) error
	FindRedirectByPath(ctx context.Context, path string) (*shopify.Redirect, error)
	CreateRedirect(ctx context.Context, path, target string) (*shopify.Redirect, error)
	DeleteRedirect(ctx context.Context, redirectID int64) error
	GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*shopify.Metafield, error)
	SetProductMetafield(ctx context.Context, productID int64, namespace, key, value string) (*shopify.Metafield, error)
}

// Aggregate is the product-level view the decision table runs on: decisions
// are per product, never per variant.
type Aggregate struct {
	ProductID int64
	Handle    string
	InStock   bool
}

// Outcome reports which side effects a pass actually changed. Checked-before-
// write mutations make repeated passes report all-false.
type Outcome struct {
	PublishChanged   bool `json:"publish_changed"`
	RedirectChanged  bool `json:"redirect_changed"`
	CanonicalWritten bool `json:"canonical_written"`
}

// Engine derives publish state, redirects, and the canonical metafield from a
// product aggregate. Every mutation is checked against current remote state
// first, so replaying the same aggregate is a no-op.
type Engine struct {
	upstream Mutator
	logger   *logger.Logger
	metrics  *metrics.PipelineMetrics
}

// New builds an engine. metrics may be nil.
func New(upstream Mutator, logg *logger.Logger, m *metrics.PipelineMetrics) *Engine {
	return &Engine{upstream: upstream, logger: logg, metrics: m}
}

// Apply runs the decision table for one product. A failed side effect is
// recorded and the remaining effects still run; the aggregated error carries
// every failure.
func (e *Engine) Apply(ctx context.Context, agg Aggregate) (Outcome, error) {
	ctx = e.logger.WithProductID(ctx, agg.ProductID)
	handle := agg.Handle
	ctx = e.logger.WithHandle(ctx, handle)

	var outcome Outcome
	var errs error

	inStock := agg.InStock

	product, err := e.upstream.GetProduct(ctx, agg.ProductID)
	if err != nil {
		// Without current remote state no mutation can be checked first.
		e.logger.Error(ctx, "rule pass aborted, product fetch failed", err)
		return outcome, err
	}

	damagedPath := productPath(handle)
	existing, redirectErr := e.upstream.FindRedirectByPath(ctx, damagedPath)
	if redirectErr != nil {
		e.logger.Error(ctx, "redirect lookup failed", redirectErr)
		errs = multierr.Append(errs, redirectErr)
	}

	canonical := e.canonicalHandle(handle, existing)

	if changed, err := e.ensurePublished(ctx, product, inStock); err != nil {
		errs = multierr.Append(errs, err)
	} else if changed {
		outcome.PublishChanged = true
	}

	// Redirect state is unknowable after a failed lookup; creating or deleting
	// blind could duplicate or drop a manual redirect.
	if redirectErr == nil {
		if changed, err := e.ensureRedirect(ctx, damagedPath, canonical, existing, inStock); err != nil {
			errs = multierr.Append(errs, err)
		} else if changed {
			outcome.RedirectChanged = true
		}
	}

	if written, err := e.ensureCanonical(ctx, agg.ProductID, handle, canonical); err != nil {
		errs = multierr.Append(errs, err)
	} else if written {
		outcome.CanonicalWritten = true
	}

	return outcome, errs
}

// canonicalHandle strips the damage marker, unless a redirect already routes
// the damaged path elsewhere. A manual override recorded as a redirect target
// survives automated re-resolution.
func (e *Engine) canonicalHandle(handle string, existing *shopify.Redirect) string {
	if existing != nil {
		if target := handleFromPath(existing.Target); target != "" {
			return target
		}
	}
	return classifier.CanonicalHandle(handle)
}

func (e *Engine) ensurePublished(ctx context.Context, product *shopify.Product, inStock bool) (bool, error) {
	published := product.PublishedAt != nil
	if published == inStock {
		return false, nil
	}
	if err := e.upstream.SetPublished(ctx, product.ID, inStock); err != nil {
		e.logger.Error(ctx, "publish toggle failed", err)
		return false, fmt.Errorf("set published=%v: %w", inStock, err)
	}
	if inStock {
		e.count(ActionPublish)
		e.logger.Info(ctx, "product published")
	} else {
		e.count(ActionUnpublish)
		e.logger.Info(ctx, "product unpublished")
	}
	return true, nil
}

func (e *Engine) ensureRedirect(ctx context.Context, damagedPath, canonical string, existing *shopify.Redirect, inStock bool) (bool, error) {
	if inStock {
		if existing == nil {
			return false, nil
		}
		if err := e.upstream.DeleteRedirect(ctx, existing.ID); err != nil {
			e.logger.Error(ctx, "redirect delete failed", err)
			return false, fmt.Errorf("delete redirect %d: %w", existing.ID, err)
		}
		e.count(ActionRedirectDelete)
		e.logger.Info(ctx, "redirect removed")
		return true, nil
	}

	if existing != nil {
		return false, nil
	}
	if canonical == "" || canonical == handleFromPath(damagedPath) {
		// Nothing sensible to redirect to; a self-redirect would loop.
		return false, nil
	}
	if _, err := e.upstream.CreateRedirect(ctx, damagedPath, productPath(canonical)); err != nil {
		e.logger.Error(ctx, "redirect create failed", err)
		return false, fmt.Errorf("create redirect %s: %w", damagedPath, err)
	}
	e.count(ActionRedirectCreate)
	e.logger.Info(ctx, "redirect created")
	return true, nil
}

func (e *Engine) ensureCanonical(ctx context.Context, productID int64, handle, canonical string) (bool, error) {
	if canonical == "" || canonical == handle {
		return false, nil
	}
	current, err := e.upstream.GetProductMetafield(ctx, productID, CanonicalNamespace, CanonicalKey)
	if err != nil {
		e.logger.Error(ctx, "canonical metafield read failed", err)
		return false, fmt.Errorf("read canonical metafield: %w", err)
	}
	if current != nil && current.Value == canonical {
		return false, nil
	}
	if _, err := e.upstream.SetProductMetafield(ctx, productID, CanonicalNamespace, CanonicalKey, canonical); err != nil {
		e.logger.Error(ctx, "canonical metafield write failed", err)
		return false, fmt.Errorf("write canonical metafield: %w", err)
	}
	e.count(ActionCanonicalWrite)
	e.logger.Info(ctx, "canonical metafield written")
	return true, nil
}

func (e *Engine) count(action string) {
	if e.metrics != nil {
		e.metrics.IncRuleAction(action)
	}
}

func productPath(handle string) string {
	return "/products/" + handle
}

func handleFromPath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/products/") {
		return ""
	}
	return strings.TrimPrefix(path, "/products/")
}
