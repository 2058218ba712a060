package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/config"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	cfg := config.ShopifyConfig{
		ShopURL:       "test-shop.myshopify.com",
		AccessToken:   "shpat_test",
		WebhookSecret: "whsec_test",
		APIVersion:    "2025-01",
		Timeout:       2 * time.Second,
		MaxRetries:    2,
		RetryBaseWait: time.Millisecond,
	}
	client, err := NewClient(cfg, logg, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestVariantsByInventoryItemIDFiltersLocally(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "shpat_test" {
			t.Errorf("missing access token header, got %q", got)
		}
		if r.URL.Path != "/variants.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// The bulk endpoint can return unrelated variants; the client must
		// keep only exact inventory item matches.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"variants":[
			{"id":1,"product_id":10,"inventory_item_id":555,"title":"Light"},
			{"id":2,"product_id":11,"inventory_item_id":999,"title":"Other"}
		]}`))
	}))

	variants, err := client.VariantsByInventoryItemID(context.Background(), 555)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(variants) != 1 {
		t.Fatalf("expected 1 matched variant, got %d", len(variants))
	}
	if variants[0].ID != 1 || variants[0].InventoryItemID != 555 {
		t.Fatalf("wrong variant matched: %+v", variants[0])
	}
}

func TestVariantByInventoryItemIDExact(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"productVariants":{"edges":[{"node":{
			"id":"gid://shopify/ProductVariant/42",
			"title":"Moderate",
			"sku":"BK-042",
			"inventoryQuantity":3,
			"inventoryItem":{"id":"gid://shopify/InventoryItem/555"},
			"product":{"id":"gid://shopify/Product/10","handle":"widget-damaged","title":"Widget (Damaged)"},
			"selectedOptions":[{"name":"Condition","value":"Moderate"}]
		}}]}}}`))
	}))

	variant, handle, err := client.VariantByInventoryItemIDExact(context.Background(), 555)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if variant == nil {
		t.Fatalf("expected a variant")
	}
	if variant.ID != 42 || variant.ProductID != 10 || variant.InventoryItemID != 555 {
		t.Fatalf("wrong ids decoded: %+v", variant)
	}
	if variant.Option1 != "Moderate" {
		t.Fatalf("expected selected option mapped to option1, got %q", variant.Option1)
	}
	if handle != "widget-damaged" {
		t.Fatalf("unexpected handle %q", handle)
	}
}

func TestVariantByInventoryItemIDExactNoMatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"productVariants":{"edges":[]}}}`))
	}))

	variant, _, err := client.VariantByInventoryItemIDExact(context.Background(), 555)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if variant != nil {
		t.Fatalf("expected nil variant, got %+v", variant)
	}
}

func TestRateLimitedRequestRetries(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"variants":[]}`))
	}))

	if _, err := client.VariantsByInventoryItemID(context.Background(), 1); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestRateLimitExhaustionSurfacesCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.VariantsByInventoryItemID(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !pkgerrors.IsRateLimited(err) {
		t.Fatalf("expected rate limit code, got %v", err)
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestGidNumericID(t *testing.T) {
	if got := gidNumericID("gid://shopify/InventoryItem/987"); got != 987 {
		t.Fatalf("expected 987, got %d", got)
	}
	if got := gidNumericID("not-a-gid"); got != 0 {
		t.Fatalf("expected 0 for malformed gid, got %d", got)
	}
	if got := gidNumericID("gid://shopify/Product/"); got != 0 {
		t.Fatalf("expected 0 for empty id, got %d", got)
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("access_token", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"inventory_item_id":555,"available":2}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(body, secret, valid) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifyWebhookSignature(body, secret, "bogus") {
		t.Fatalf("expected bogus signature to fail")
	}
	if VerifyWebhookSignature(body, "", valid) {
		t.Fatalf("expected empty secret to fail")
	}
	if VerifyWebhookSignature(body, secret, "") {
		t.Fatalf("expected empty header to fail")
	}
	// A digest over different bytes must not verify.
	if VerifyWebhookSignature([]byte(`{"inventory_item_id":556}`), secret, valid) {
		t.Fatalf("expected mismatched payload to fail")
	}
}

func TestSetPublishedBody(t *testing.T) {
	var sawNull, sawTimestamp bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Product struct {
				ID          int64   `json:"id"`
				PublishedAt *string `json:"published_at"`
			} `json:"product"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Product.PublishedAt == nil {
			sawNull = true
		} else {
			sawTimestamp = true
		}
		_, _ = w.Write([]byte(`{"product":{"id":10}}`))
	}))

	if err := client.SetPublished(context.Background(), 10, false); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if err := client.SetPublished(context.Background(), 10, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !sawNull || !sawTimestamp {
		t.Fatalf("expected both null and timestamp published_at, got null=%v ts=%v", sawNull, sawTimestamp)
	}
}

func TestFindRedirectByPathExactMatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path search is prefix-based upstream; the client must match exactly.
		_, _ = w.Write([]byte(`{"redirects":[
			{"id":7,"path":"/products/widget-damaged-v2","target":"/products/other"},
			{"id":8,"path":"/products/widget-damaged","target":"/products/widget"}
		]}`))
	}))

	redirect, err := client.FindRedirectByPath(context.Background(), "/products/widget-damaged")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if redirect == nil || redirect.ID != 8 {
		t.Fatalf("expected exact path match id 8, got %+v", redirect)
	}
}
