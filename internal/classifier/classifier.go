package classifier

import (
	"strings"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

// Condition is a classified damage tier plus the raw value it was derived
// from.
type Condition struct {
	Key      string
	Raw      string
	Strategy string
}

// Strategy names, recorded on the classification result for logging.
const (
	StrategyOption       = "condition_option"
	StrategyDamageSuffix = "damaged_handle"
	StrategyHurtSuffix   = "hurt_handle"
)

const conditionOptionName = "condition"

// tierByOption maps structured option values to condition keys.
var tierByOption = map[string]string{
	"light":    models.ConditionLight,
	"moderate": models.ConditionModerate,
	"heavy":    models.ConditionHeavy,
}

// tierByHurtGrade maps the retired hurt-grade vocabulary onto current tiers.
var tierByHurtGrade = map[string]string{
	"like-new":   models.ConditionLight,
	"very-good":  models.ConditionLight,
	"good":       models.ConditionModerate,
	"acceptable": models.ConditionHeavy,
}

type strategy func(variant shopify.Variant, product *shopify.Product) *Condition

// Classifier derives a damage condition from variant and product metadata.
// Strategies run in order and the first match wins, so structured option data
// always beats handle parsing.
type Classifier struct {
	strategies []strategy
}

// New returns a classifier with the standard strategy order.
func New() *Classifier {
	return &Classifier{
		strategies: []strategy{
			matchConditionOption,
			matchDamagedHandle,
			matchHurtHandle,
		},
	}
}

// Classify returns the condition for the variant, or nil when no strategy
// recognizes it. A nil result means skip, not error.
func (c *Classifier) Classify(variant shopify.Variant, product *shopify.Product) *Condition {
	for _, s := range c.strategies {
		if cond := s(variant, product); cond != nil {
			return cond
		}
	}
	return nil
}

// matchConditionOption reads the product option named "Condition" and matches
// the variant's value for that axis.
func matchConditionOption(variant shopify.Variant, product *shopify.Product) *Condition {
	raw := conditionOptionValue(variant, product)
	if raw == "" {
		return nil
	}
	key, ok := tierByOption[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return nil
	}
	return &Condition{Key: key, Raw: raw, Strategy: StrategyOption}
}

func conditionOptionValue(variant shopify.Variant, product *shopify.Product) string {
	if product == nil {
		return ""
	}
	for _, opt := range product.Options {
		if !strings.EqualFold(strings.TrimSpace(opt.Name), conditionOptionName) {
			continue
		}
		switch opt.Position {
		case 1:
			return variant.Option1
		case 2:
			return variant.Option2
		case 3:
			return variant.Option3
		}
	}
	return ""
}

// matchDamagedHandle parses the <base>-damaged-<tier> handle format.
func matchDamagedHandle(variant shopify.Variant, product *shopify.Product) *Condition {
	handle := productHandle(product)
	if handle == "" {
		return nil
	}
	idx := strings.LastIndex(handle, "-damaged-")
	if idx < 0 {
		return nil
	}
	tier := handle[idx+len("-damaged-"):]
	key, ok := tierByOption[tier]
	if !ok {
		return nil
	}
	return &Condition{Key: key, Raw: tier, Strategy: StrategyDamageSuffix}
}

// matchHurtHandle parses the retired <base>-hurt-<grade> handle format.
func matchHurtHandle(variant shopify.Variant, product *shopify.Product) *Condition {
	handle := productHandle(product)
	if handle == "" {
		return nil
	}
	idx := strings.LastIndex(handle, "-hurt-")
	if idx < 0 {
		return nil
	}
	grade := handle[idx+len("-hurt-"):]
	key, ok := tierByHurtGrade[grade]
	if !ok {
		return nil
	}
	return &Condition{Key: key, Raw: grade, Strategy: StrategyHurtSuffix}
}

func productHandle(product *shopify.Product) string {
	if product == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(product.Handle))
}

// CanonicalHandle strips the damage marker from a damaged product handle,
// yielding the handle of the undamaged product. Handles without a marker are
// returned unchanged.
func CanonicalHandle(handle string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	for _, marker := range []string{"-damaged-", "-hurt-"} {
		if idx := strings.LastIndex(handle, marker); idx >= 0 {
			return handle[:idx]
		}
	}
	for _, suffix := range []string{"-damaged", "-hurt"} {
		if strings.HasSuffix(handle, suffix) {
			return strings.TrimSuffix(handle, suffix)
		}
	}
	return handle
}
