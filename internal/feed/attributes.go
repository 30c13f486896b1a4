package feed

import (
	"errors"
	"fmt"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
)

const (
	AttrItemName           = "item_name"
	AttrBrand              = "brand"
	AttrProductType        = "feed_product_type"
	AttrVariationTheme     = "variation_theme"
	AttrPrice              = "standard_price"
	AttrQuantity           = "quantity"
	AttrFulfillmentLatency = "fulfillment_latency"
	AttrMainImage          = "main_image_url"
	AttrOtherImage         = "other_image_url"
	AttrBulletPoint        = "bullet_point"
	AttrDescription        = "product_description"
	AttrSize               = "size"
	AttrColor              = "color"
	AttrSleeve             = "sleeve"
	AttrImageType          = "image_type"
)

var ErrCardinality = errors.New("attribute cardinality violated")

// Value is a single attribute value. Currency is only set for money attributes.
type Value struct {
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
}

type cardinality struct {
	max      int
	currency bool
}

var attributeSpecs = map[string]cardinality{
	AttrItemName:           {max: 1},
	AttrBrand:              {max: 1},
	AttrProductType:        {max: 1},
	AttrVariationTheme:     {max: 1},
	AttrPrice:              {max: 1, currency: true},
	AttrQuantity:           {max: 1},
	AttrFulfillmentLatency: {max: 1},
	AttrMainImage:          {max: 1},
	AttrOtherImage:         {max: 8},
	AttrBulletPoint:        {max: catalog.MaxBullets},
	AttrDescription:        {max: 1},
	AttrSize:               {max: 1},
	AttrColor:              {max: 1},
	AttrSleeve:             {max: 1},
	AttrImageType:          {max: 1},
}

func specFor(name string) cardinality {
	if s, ok := attributeSpecs[name]; ok {
		return s
	}
	return cardinality{max: 1}
}

// Attributes maps attribute names to their ordered values.
type Attributes map[string][]Value

// Set replaces the values of name, enforcing the attribute's cardinality.
// Setting no values removes the attribute.
func (a Attributes) Set(name string, values ...Value) error {
	if len(values) == 0 {
		delete(a, name)
		return nil
	}

	spec := specFor(name)
	if len(values) > spec.max {
		return fmt.Errorf("%w: %s accepts at most %d value(s), got %d", ErrCardinality, name, spec.max, len(values))
	}
	for _, v := range values {
		if spec.currency && v.Currency == "" {
			return fmt.Errorf("%w: %s requires a currency", ErrCardinality, name)
		}
		if !spec.currency && v.Currency != "" {
			return fmt.Errorf("%w: %s does not take a currency", ErrCardinality, name)
		}
	}

	cp := make([]Value, len(values))
	copy(cp, values)
	a[name] = cp
	return nil
}

// SetStrings is Set for plain values; empty strings are skipped.
func (a Attributes) SetStrings(name string, values ...string) error {
	vals := make([]Value, 0, len(values))
	for _, s := range values {
		if s == "" {
			continue
		}
		vals = append(vals, Value{Value: s})
	}
	return a.Set(name, vals...)
}

func (a Attributes) First(name string) string {
	vs := a[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[0].Value
}

func (a Attributes) Strings(name string) []string {
	vs := a[name]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, vs := range a {
		cp := make([]Value, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}
