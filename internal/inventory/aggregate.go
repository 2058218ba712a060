package inventory

import "github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"

// ProductAggregate groups every tracked damaged variant of one product. Rule
// decisions run against the whole product, never a single variant.
type ProductAggregate struct {
	ProductID int64
	Records   []models.DamagedInventory
}

// NewProductAggregate builds an aggregate from the records of one product.
func NewProductAggregate(productID int64, records []models.DamagedInventory) ProductAggregate {
	return ProductAggregate{ProductID: productID, Records: records}
}

// InStock reports whether any variant on the product has stock.
func (a ProductAggregate) InStock() bool {
	for _, r := range a.Records {
		if r.Available > 0 {
			return true
		}
	}
	return false
}

// Handle returns the product handle recorded on the aggregate, preferring the
// most recently updated record when handles disagree after a rename.
func (a ProductAggregate) Handle() string {
	handle := ""
	var latest int64
	for _, r := range a.Records {
		if ts := r.UpdatedAt.UnixNano(); handle == "" || ts > latest {
			handle = r.Handle
			latest = ts
		}
	}
	return handle
}
