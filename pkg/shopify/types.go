package shopify

import (
	"encoding/json"
	"time"
)

// Product mirrors the Admin REST product resource, trimmed to the fields the
// service reads and writes.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Status      string          `json:"status,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	PublishedAt *time.Time      `json:"published_at"`
	Options     []ProductOption `json:"options,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
}

// ProductOption is a named option axis on a product, e.g. "Condition".
type ProductOption struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values,omitempty"`
}

// Variant mirrors the Admin REST variant resource.
type Variant struct {
	ID                int64   `json:"id"`
	ProductID         int64   `json:"product_id"`
	Title             string  `json:"title"`
	SKU               string  `json:"sku,omitempty"`
	Barcode           string  `json:"barcode,omitempty"`
	Price             string  `json:"price,omitempty"`
	Option1           string  `json:"option1,omitempty"`
	Option2           string  `json:"option2,omitempty"`
	Option3           string  `json:"option3,omitempty"`
	InventoryItemID   int64   `json:"inventory_item_id"`
	InventoryQuantity int     `json:"inventory_quantity"`
	InventoryPolicy   string  `json:"inventory_policy,omitempty"`
	CompareAtPrice    *string `json:"compare_at_price,omitempty"`
}

// OptionValues returns the variant's non-empty option values in position order.
func (v Variant) OptionValues() []string {
	vals := make([]string, 0, 3)
	for _, o := range []string{v.Option1, v.Option2, v.Option3} {
		if o != "" {
			vals = append(vals, o)
		}
	}
	return vals
}

// Redirect mirrors the Admin REST URL redirect resource.
type Redirect struct {
	ID     int64  `json:"id,omitempty"`
	Path   string `json:"path"`
	Target string `json:"target"`
}

// Metafield mirrors the Admin REST metafield resource.
type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
	OwnerID   int64  `json:"owner_id,omitempty"`
}

// InventoryLevel mirrors the Admin REST inventory level resource.
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

// Shop holds the subset of shop.json used for connectivity checks.
type Shop struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// REST envelopes.
type productEnvelope struct {
	Product Product `json:"product"`
}

type variantsEnvelope struct {
	Variants []Variant `json:"variants"`
}

type redirectEnvelope struct {
	Redirect Redirect `json:"redirect"`
}

type redirectsEnvelope struct {
	Redirects []Redirect `json:"redirects"`
}

type metafieldEnvelope struct {
	Metafield Metafield `json:"metafield"`
}

type metafieldsEnvelope struct {
	Metafields []Metafield `json:"metafields"`
}

type inventoryLevelsEnvelope struct {
	InventoryLevels []InventoryLevel `json:"inventory_levels"`
}

type shopEnvelope struct {
	Shop Shop `json:"shop"`
}

// graphqlRequest is the body sent to the Admin GraphQL endpoint.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// variantNode is the GraphQL shape returned by the productVariants query.
type variantNode struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SKU           string `json:"sku"`
	Barcode       string `json:"barcode"`
	InventoryItem struct {
		ID string `json:"id"`
	} `json:"inventoryItem"`
	Product struct {
		ID     string `json:"id"`
		Handle string `json:"handle"`
		Title  string `json:"title"`
	} `json:"product"`
	SelectedOptions []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
	InventoryQuantity int `json:"inventoryQuantity"`
}

type productVariantsData struct {
	ProductVariants struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"productVariants"`
}
