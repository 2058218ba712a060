package resolver

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

// ErrNotFound is returned when neither lookup tier knows the inventory item.
var ErrNotFound = errors.New("inventory item not resolved")

// Identity is the upstream identity of one inventory item.
type Identity struct {
	Variant shopify.Variant
	Product *shopify.Product
	Handle  string
}

// VariantLookup is the subset of the upstream client the resolver reads from.
type VariantLookup interface {
	VariantsByInventoryItemID(ctx context.Context, inventoryItemID int64) ([]shopify.Variant, error)
	VariantByInventoryItemIDExact(ctx context.Context, inventoryItemID int64) (*shopify.Variant, string, error)
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
}

// Resolver maps inventory item ids to their upstream variant and product.
// Reads only, never mutates upstream state.
type Resolver struct {
	lookup  VariantLookup
	logger  *logger.Logger
	metrics *metrics.PipelineMetrics
}

// New builds a resolver. metrics may be nil.
func New(lookup VariantLookup, logg *logger.Logger, m *metrics.PipelineMetrics) *Resolver {
	return &Resolver{lookup: lookup, logger: logg, metrics: m}
}

// Resolve finds the variant and product for an inventory item. The bulk
// endpoint sometimes ignores its filter and returns an unrelated page, so an
// empty post-filtered result always falls through to the exact lookup rather
// than being trusted as a miss.
func (r *Resolver) Resolve(ctx context.Context, inventoryItemID int64) (*Identity, error) {
	ctx = r.logger.WithInventoryItemID(ctx, inventoryItemID)

	variants, err := r.lookup.VariantsByInventoryItemID(ctx, inventoryItemID)
	if err != nil {
		return nil, r.failed(ctx, inventoryItemID, "bulk lookup", err)
	}

	if len(variants) > 0 {
		r.count(metrics.ResolutionBulk)
		return r.withProduct(ctx, variants[0])
	}

	variant, handle, err := r.lookup.VariantByInventoryItemIDExact(ctx, inventoryItemID)
	if err != nil {
		return nil, r.failed(ctx, inventoryItemID, "exact lookup", err)
	}
	if variant == nil {
		r.count(metrics.ResolutionMiss)
		r.logger.Info(ctx, "inventory item unknown upstream")
		return nil, ErrNotFound
	}

	r.count(metrics.ResolutionFallback)
	identity, err := r.withProduct(ctx, *variant)
	if err != nil {
		return nil, err
	}
	if identity.Handle == "" {
		identity.Handle = handle
	}
	return identity, nil
}

func (r *Resolver) withProduct(ctx context.Context, variant shopify.Variant) (*Identity, error) {
	product, err := r.lookup.GetProduct(ctx, variant.ProductID)
	if err != nil {
		return nil, r.failed(ctx, variant.InventoryItemID, "product fetch", err)
	}
	return &Identity{
		Variant: variant,
		Product: product,
		Handle:  product.Handle,
	}, nil
}

func (r *Resolver) failed(ctx context.Context, inventoryItemID int64, stage string, err error) error {
	r.logger.Warn(ctx, fmt.Sprintf("resolution %s failed", stage))
	if pkgerrors.IsRateLimited(err) {
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, fmt.Sprintf("resolution %s rate limited", stage))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("resolution %s failed", stage))
}

func (r *Resolver) count(path string) {
	if r.metrics != nil {
		r.metrics.IncResolution(path)
	}
}
