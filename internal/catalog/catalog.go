// Package catalog holds the fixed product catalog (variation matrix, price tiers
// and marketing copy) that feeds are built from.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog describes one garment product type and its variation matrix.
// It is passed explicitly to the feed builder so alternate catalogs can be
// tested without touching build logic.
type Catalog struct {
	Brand          string `yaml:"brand"`
	ProductType    string `yaml:"product_type"`    // marketplace feed_product_type
	ListingType    string `yaml:"listing_type"`    // marketplace JSON listings productType
	ItemNameSuffix string `yaml:"item_name_suffix"` // appended to the display title
	VariationTheme string `yaml:"variation_theme"`

	Variations []string                   `yaml:"variations"`
	PriceTiers []decimal.Decimal          `yaml:"price_tiers"` // cycled by label index
	Prices     map[string]decimal.Decimal `yaml:"prices"`      // per-label override
	Currency   string                     `yaml:"currency"`

	Quantity           int `yaml:"quantity"`
	FulfillmentLatency int `yaml:"fulfillment_latency"`

	Bullets         []string `yaml:"bullets"`
	Description     string   `yaml:"description"`
	AccessoryImages []string `yaml:"accessory_images"`

	// Storefront fields.
	Vendor         string   `yaml:"vendor"`
	StorefrontType string   `yaml:"storefront_type"`
	Tags           []string `yaml:"tags"`
}

var defaultVariations = []string{
	"Newborn White Short Sleeve", "Newborn White Long Sleeve", "Newborn Natural Short Sleeve",
	"0-3M White Short Sleeve", "0-3M White Long Sleeve", "0-3M Pink Short Sleeve", "0-3M Blue Short Sleeve",
	"3-6M White Short Sleeve", "3-6M White Long Sleeve", "3-6M Blue Short Sleeve", "3-6M Pink Short Sleeve",
	"6M Natural Short Sleeve", "6-9M White Short Sleeve", "6-9M White Long Sleeve", "6-9M Pink Short Sleeve",
	"6-9M Blue Short Sleeve", "12M White Short Sleeve", "12M White Long Sleeve", "12M Natural Short Sleeve",
	"12M Pink Short Sleeve", "12M Blue Short Sleeve", "18M White Short Sleeve", "18M White Long Sleeve",
	"18M Natural Short Sleeve", "24M White Short Sleeve", "24M White Long Sleeve", "24M Natural Short Sleeve",
}

// Default returns the baby bodysuit catalog the listings were built around.
func Default() Catalog {
	vars := make([]string, len(defaultVariations))
	copy(vars, defaultVariations)

	return Catalog{
		Brand:          "NOFO VIBES",
		ProductType:    "infant-and-toddler-bodysuits",
		ListingType:    "INFANT_AND_TODDLER_BODYSUIT",
		ItemNameSuffix: "Baby Boy Girl Clothes Bodysuit Funny Cute",
		VariationTheme: "Size",
		Variations:     vars,
		PriceTiers: []decimal.Decimal{
			decimal.RequireFromString("21.99"),
			decimal.RequireFromString("22.99"),
			decimal.RequireFromString("27.99"),
		},
		Currency:           "USD",
		Quantity:           999,
		FulfillmentLatency: 2,
		Bullets: []string{
			"🎨 High-Quality Ink Printing",
			"🎖️ Proudly Veteran-Owned",
			"👶 Comfort and Convenience",
			"🎁 Perfect Baby Shower Gift",
			"📏 Versatile Sizing & Colors",
		},
		Description: "<p>Celebrate the arrival of your little one with a beautifully printed baby bodysuit from NOFO VIBES. Crafted for comfort and made with love!</p>",
		AccessoryImages: []string{
			"https://m.media-amazon.com/images/I/71gy1ba4WmL._AC_SX569_.jpg",
			"https://m.media-amazon.com/images/I/71DUS9nCUjL._AC_SX569_.jpg",
			"https://m.media-amazon.com/images/I/81UU9p0A4aL._AC_SX569_.jpg",
			"https://m.media-amazon.com/images/I/81qLAI2RmBL._AC_SX569_.jpg",
			"https://m.media-amazon.com/images/I/71HvcLmnGkL._AC_SX569_.jpg",
		},
		Vendor:         "NOFO VIBES",
		StorefrontType: "Baby Bodysuit",
		Tags:           []string{"baby", "funny", "onesie", "cute", "custom"},
	}
}

// Load reads a YAML catalog. Fields left empty fall back to Default().
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) withDefaults() Catalog {
	d := Default()

	if c.Brand == "" {
		c.Brand = d.Brand
	}
	if c.ProductType == "" {
		c.ProductType = d.ProductType
	}
	if c.ListingType == "" {
		c.ListingType = d.ListingType
	}
	if c.ItemNameSuffix == "" {
		c.ItemNameSuffix = d.ItemNameSuffix
	}
	if c.VariationTheme == "" {
		c.VariationTheme = d.VariationTheme
	}
	if len(c.Variations) == 0 {
		c.Variations = d.Variations
	}
	if len(c.PriceTiers) == 0 && len(c.Prices) == 0 {
		c.PriceTiers = d.PriceTiers
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.Quantity == 0 {
		c.Quantity = d.Quantity
	}
	if c.FulfillmentLatency == 0 {
		c.FulfillmentLatency = d.FulfillmentLatency
	}
	if len(c.Bullets) == 0 {
		c.Bullets = d.Bullets
	}
	if c.Description == "" {
		c.Description = d.Description
	}
	if c.AccessoryImages == nil {
		c.AccessoryImages = d.AccessoryImages
	}
	if c.Vendor == "" {
		c.Vendor = c.Brand
	}
	if c.StorefrontType == "" {
		c.StorefrontType = d.StorefrontType
	}
	if c.Tags == nil {
		c.Tags = d.Tags
	}
	return c
}

// Listing content limits shared by every feed encoding. The flat file has
// five bullet and five secondary image columns.
const (
	MaxBullets         = 5
	MaxAccessoryImages = 5
)

// Validate checks the matrix is usable: every label parses, every label has
// a price, and no two labels collapse to the same SKU. Listing content must
// fit the feed limits.
func (c Catalog) Validate() error {
	if len(c.Variations) == 0 {
		return fmt.Errorf("%w: no variations", ErrInvalidCatalog)
	}
	if c.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be >= 0", ErrInvalidCatalog)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter ISO code", ErrInvalidCatalog)
	}
	if len(c.Bullets) > MaxBullets {
		return fmt.Errorf("%w: at most %d bullets, got %d", ErrInvalidCatalog, MaxBullets, len(c.Bullets))
	}
	if len(c.AccessoryImages) > MaxAccessoryImages {
		return fmt.Errorf("%w: at most %d accessory images, got %d", ErrInvalidCatalog, MaxAccessoryImages, len(c.AccessoryImages))
	}

	seen := make(map[string]string, len(c.Variations))
	for i, label := range c.Variations {
		v, err := ParseLabel(label)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if _, ok := c.PriceFor(i, label); !ok {
			return fmt.Errorf("%w: no price for %q", ErrInvalidCatalog, label)
		}

		key := v.suffix()
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q and %q produce the same sku", ErrInvalidCatalog, prev, label)
		}
		seen[key] = label
	}

	return nil
}

// PriceFor resolves a label's price: explicit override first, then the tier
// table cycled by position.
func (c Catalog) PriceFor(index int, label string) (decimal.Decimal, bool) {
	if p, ok := c.Prices[label]; ok {
		return p, true
	}
	if len(c.PriceTiers) == 0 || index < 0 {
		return decimal.Decimal{}, false
	}
	return c.PriceTiers[index%len(c.PriceTiers)], true
}
