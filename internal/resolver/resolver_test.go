package resolver

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

type stubLookup struct {
	bulkVariants []shopify.Variant
	bulkErr      error
	bulkCalls    int

	exactVariant *shopify.Variant
	exactHandle  string
	exactErr     error
	exactCalls   int

	product    *shopify.Product
	productErr error
}

func (s *stubLookup) VariantsByInventoryItemID(ctx context.Context, id int64) ([]shopify.Variant, error) {
	s.bulkCalls++
	return s.bulkVariants, s.bulkErr
}

func (s *stubLookup) VariantByInventoryItemIDExact(ctx context.Context, id int64) (*shopify.Variant, string, error) {
	s.exactCalls++
	return s.exactVariant, s.exactHandle, s.exactErr
}

func (s *stubLookup) GetProduct(ctx context.Context, productID int64) (*shopify.Product, error) {
	return s.product, s.productErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
}

func TestResolveBulkHit(t *testing.T) {
	lookup := &stubLookup{
		bulkVariants: []shopify.Variant{{ID: 42, ProductID: 10, InventoryItemID: 555}},
		product:      &shopify.Product{ID: 10, Handle: "cookbook-damaged"},
	}
	r := New(lookup, testLogger(), nil)

	identity, err := r.Resolve(context.Background(), 555)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Variant.ID != 42 || identity.Handle != "cookbook-damaged" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if lookup.exactCalls != 0 {
		t.Fatalf("bulk hit must not fall back, exact called %d times", lookup.exactCalls)
	}
}

func TestResolveFallsBackOnEmptyBulk(t *testing.T) {
	// The bulk endpoint returning nothing relevant is the common case, not an
	// anomaly, so the exact lookup always runs.
	lookup := &stubLookup{
		exactVariant: &shopify.Variant{ID: 42, ProductID: 10, InventoryItemID: 555},
		exactHandle:  "cookbook-damaged",
		product:      &shopify.Product{ID: 10, Handle: "cookbook-damaged"},
	}
	r := New(lookup, testLogger(), nil)

	identity, err := r.Resolve(context.Background(), 555)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lookup.exactCalls != 1 {
		t.Fatalf("expected exact fallback, called %d times", lookup.exactCalls)
	}
	if identity.Variant.ID != 42 {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveNotFound(t *testing.T) {
	lookup := &stubLookup{}
	r := New(lookup, testLogger(), nil)

	_, err := r.Resolve(context.Background(), 555)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if lookup.bulkCalls != 1 || lookup.exactCalls != 1 {
		t.Fatalf("both tiers must be consulted: bulk=%d exact=%d", lookup.bulkCalls, lookup.exactCalls)
	}
}

func TestResolveRateLimitSurfaces(t *testing.T) {
	lookup := &stubLookup{
		bulkErr: pkgerrors.New(pkgerrors.CodeRateLimit, "rate limited"),
	}
	r := New(lookup, testLogger(), nil)

	_, err := r.Resolve(context.Background(), 555)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !pkgerrors.IsRateLimited(err) {
		t.Fatalf("expected rate limit code preserved, got %v", err)
	}
}

func TestResolveDependencyFailure(t *testing.T) {
	lookup := &stubLookup{
		bulkVariants: []shopify.Variant{{ID: 42, ProductID: 10, InventoryItemID: 555}},
		productErr:   errors.New("boom"),
	}
	r := New(lookup, testLogger(), nil)

	_, err := r.Resolve(context.Background(), 555)
	if err == nil {
		t.Fatalf("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestResolveFallbackHandleUsedWhenProductHandleEmpty(t *testing.T) {
	lookup := &stubLookup{
		exactVariant: &shopify.Variant{ID: 42, ProductID: 10, InventoryItemID: 555},
		exactHandle:  "cookbook-damaged",
		product:      &shopify.Product{ID: 10},
	}
	r := New(lookup, testLogger(), nil)

	identity, err := r.Resolve(context.Background(), 555)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Handle != "cookbook-damaged" {
		t.Fatalf("expected graphql handle fallback, got %q", identity.Handle)
	}
}
