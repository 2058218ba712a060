package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
)

// VariantsByInventoryItemID looks a variant up through the bulk REST endpoint.
// The endpoint ignores unknown filter params on some API versions, so the
// result set is filtered locally before it is trusted.
func (c *Client) VariantsByInventoryItemID(ctx context.Context, inventoryItemID int64) ([]Variant, error) {
	query := url.Values{}
	query.Set("inventory_item_ids", strconv.FormatInt(inventoryItemID, 10))

	c.log(ctx, "request", "variants_by_inventory_item", map[string]any{"inventory_item_id": inventoryItemID})
	var envelope variantsEnvelope
	if err := c.do(ctx, "variants_by_inventory_item", http.MethodGet, "/variants.json", query, nil, &envelope); err != nil {
		return nil, err
	}

	matched := make([]Variant, 0, len(envelope.Variants))
	for _, v := range envelope.Variants {
		if v.InventoryItemID == inventoryItemID {
			matched = append(matched, v)
		}
	}
	c.log(ctx, "response", "variants_by_inventory_item", map[string]any{
		"returned": len(envelope.Variants),
		"matched":  len(matched),
	})
	return matched, nil
}

const variantByInventoryItemQuery = `query($query: String!) {
  productVariants(first: 5, query: $query) {
    edges {
      node {
        id
        title
        sku
        barcode
        inventoryQuantity
        inventoryItem { id }
        product { id handle title }
        selectedOptions { name value }
      }
    }
  }
}`

// VariantByInventoryItemIDExact resolves a variant through the Admin GraphQL
// search. It is used as a cross-check for the bulk endpoint, which has
// returned unrelated variants under load.
func (c *Client) VariantByInventoryItemIDExact(ctx context.Context, inventoryItemID int64) (*Variant, string, error) {
	req := graphqlRequest{
		Query: variantByInventoryItemQuery,
		Variables: map[string]any{
			"query": fmt.Sprintf("inventory_item_id:%d", inventoryItemID),
		},
	}

	c.log(ctx, "request", "variant_exact_lookup", map[string]any{"inventory_item_id": inventoryItemID})
	var resp graphqlResponse
	if err := c.do(ctx, "variant_exact_lookup", http.MethodPost, "/graphql.json", nil, req, &resp); err != nil {
		return nil, "", err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, "", pkgerrors.New(pkgerrors.CodeDependency, "shopify variant_exact_lookup failed: "+strings.Join(msgs, "; "))
	}

	var data productVariantsData
	if err := unmarshalGraphQLData(resp.Data, &data); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode variant_exact_lookup data")
	}

	for _, edge := range data.ProductVariants.Edges {
		node := edge.Node
		if gidNumericID(node.InventoryItem.ID) != inventoryItemID {
			continue
		}
		variant := variantFromNode(node, inventoryItemID)
		c.log(ctx, "response", "variant_exact_lookup", map[string]any{
			"variant_id": variant.ID,
			"product_id": variant.ProductID,
			"handle":     node.Product.Handle,
		})
		return &variant, node.Product.Handle, nil
	}

	c.log(ctx, "response", "variant_exact_lookup", map[string]any{"matched": 0})
	return nil, "", nil
}

func variantFromNode(node variantNode, inventoryItemID int64) Variant {
	v := Variant{
		ID:                gidNumericID(node.ID),
		ProductID:         gidNumericID(node.Product.ID),
		Title:             node.Title,
		SKU:               node.SKU,
		Barcode:           node.Barcode,
		InventoryItemID:   inventoryItemID,
		InventoryQuantity: node.InventoryQuantity,
	}
	for i, opt := range node.SelectedOptions {
		switch i {
		case 0:
			v.Option1 = opt.Value
		case 1:
			v.Option2 = opt.Value
		case 2:
			v.Option3 = opt.Value
		}
	}
	return v
}

func unmarshalGraphQLData(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// gidNumericID extracts the trailing numeric id from a Shopify GraphQL gid,
// e.g. gid://shopify/InventoryItem/42 yields 42.
func gidNumericID(gid string) int64 {
	idx := strings.LastIndex(gid, "/")
	if idx < 0 || idx == len(gid)-1 {
		return 0
	}
	id, err := strconv.ParseInt(gid[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// GetProduct fetches a single product with variants and options.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	c.log(ctx, "request", "get_product", map[string]any{"product_id": productID})
	var envelope productEnvelope
	path := fmt.Sprintf("/products/%d.json", productID)
	if err := c.do(ctx, "get_product", http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "get_product", map[string]any{
		"product_id": envelope.Product.ID,
		"handle":     envelope.Product.Handle,
		"variants":   len(envelope.Product.Variants),
	})
	return &envelope.Product, nil
}

// SetPublished toggles storefront visibility by setting or clearing
// published_at on the product.
func (c *Client) SetPublished(ctx context.Context, productID int64, published bool) error {
	type productPatch struct {
		ID          int64      `json:"id"`
		PublishedAt *time.Time `json:"published_at"`
	}
	patch := productPatch{ID: productID}
	if published {
		now := time.Now().UTC()
		patch.PublishedAt = &now
	}
	body := map[string]productPatch{"product": patch}

	c.log(ctx, "request", "set_published", map[string]any{"product_id": productID, "published": published})
	path := fmt.Sprintf("/products/%d.json", productID)
	if err := c.do(ctx, "set_published", http.MethodPut, path, nil, body, nil); err != nil {
		return err
	}
	c.log(ctx, "response", "set_published", map[string]any{"product_id": productID})
	return nil
}

// FindRedirectByPath returns the redirect registered for the exact path, or
// nil when none exists.
func (c *Client) FindRedirectByPath(ctx context.Context, path string) (*Redirect, error) {
	query := url.Values{}
	query.Set("path", path)

	c.log(ctx, "request", "find_redirect", map[string]any{"path": path})
	var envelope redirectsEnvelope
	if err := c.do(ctx, "find_redirect", http.MethodGet, "/redirects.json", query, nil, &envelope); err != nil {
		return nil, err
	}
	for _, r := range envelope.Redirects {
		if r.Path == path {
			found := r
			c.log(ctx, "response", "find_redirect", map[string]any{"redirect_id": found.ID, "target": found.Target})
			return &found, nil
		}
	}
	c.log(ctx, "response", "find_redirect", map[string]any{"matched": 0})
	return nil, nil
}

// ListRedirects pages through registered redirects up to limit.
func (c *Client) ListRedirects(ctx context.Context, limit int) ([]Redirect, error) {
	if limit <= 0 || limit > 250 {
		limit = 250
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	c.log(ctx, "request", "list_redirects", map[string]any{"limit": limit})
	var envelope redirectsEnvelope
	if err := c.do(ctx, "list_redirects", http.MethodGet, "/redirects.json", query, nil, &envelope); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "list_redirects", map[string]any{"count": len(envelope.Redirects)})
	return envelope.Redirects, nil
}

// CreateRedirect registers a storefront redirect from path to target.
func (c *Client) CreateRedirect(ctx context.Context, path, target string) (*Redirect, error) {
	body := map[string]map[string]string{
		"redirect": {
			"path":          path,
			"target":        target,
			"redirect_type": "302",
		},
	}

	c.log(ctx, "request", "create_redirect", map[string]any{"path": path, "target": target})
	var envelope redirectEnvelope
	if err := c.do(ctx, "create_redirect", http.MethodPost, "/redirects.json", nil, body, &envelope); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "create_redirect", map[string]any{"redirect_id": envelope.Redirect.ID})
	return &envelope.Redirect, nil
}

// DeleteRedirect removes a redirect by id.
func (c *Client) DeleteRedirect(ctx context.Context, redirectID int64) error {
	c.log(ctx, "request", "delete_redirect", map[string]any{"redirect_id": redirectID})
	path := fmt.Sprintf("/redirects/%d.json", redirectID)
	if err := c.do(ctx, "delete_redirect", http.MethodDelete, path, nil, nil, nil); err != nil {
		return err
	}
	c.log(ctx, "response", "delete_redirect", map[string]any{"redirect_id": redirectID})
	return nil
}

// GetProductMetafield returns the metafield with the given namespace/key on a
// product, or nil when absent.
func (c *Client) GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*Metafield, error) {
	query := url.Values{}
	query.Set("namespace", namespace)
	query.Set("key", key)

	c.log(ctx, "request", "get_product_metafield", map[string]any{
		"product_id": productID,
		"namespace":  namespace,
		"key":        key,
	})
	var envelope metafieldsEnvelope
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if err := c.do(ctx, "get_product_metafield", http.MethodGet, path, query, nil, &envelope); err != nil {
		return nil, err
	}
	for _, m := range envelope.Metafields {
		if m.Namespace == namespace && m.Key == key {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

// SetProductMetafield creates or updates a single-line text metafield on a
// product.
func (c *Client) SetProductMetafield(ctx context.Context, productID int64, namespace, key, value string) (*Metafield, error) {
	body := map[string]Metafield{
		"metafield": {
			Namespace: namespace,
			Key:       key,
			Value:     value,
			Type:      "single_line_text_field",
		},
	}

	c.log(ctx, "request", "set_product_metafield", map[string]any{
		"product_id": productID,
		"namespace":  namespace,
		"key":        key,
	})
	var envelope metafieldEnvelope
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if err := c.do(ctx, "set_product_metafield", http.MethodPost, path, nil, body, &envelope); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "set_product_metafield", map[string]any{"metafield_id": envelope.Metafield.ID})
	return &envelope.Metafield, nil
}

// GetInventoryLevels fetches inventory levels for the given inventory item.
func (c *Client) GetInventoryLevels(ctx context.Context, inventoryItemID int64) ([]InventoryLevel, error) {
	query := url.Values{}
	query.Set("inventory_item_ids", strconv.FormatInt(inventoryItemID, 10))

	c.log(ctx, "request", "get_inventory_levels", map[string]any{"inventory_item_id": inventoryItemID})
	var envelope inventoryLevelsEnvelope
	if err := c.do(ctx, "get_inventory_levels", http.MethodGet, "/inventory_levels.json", query, nil, &envelope); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "get_inventory_levels", map[string]any{"count": len(envelope.InventoryLevels)})
	return envelope.InventoryLevels, nil
}

// Ping verifies API connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	var envelope shopEnvelope
	return c.do(ctx, "ping", http.MethodGet, "/shop.json", nil, nil, &envelope)
}
