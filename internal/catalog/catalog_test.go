package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Variations, 27)
	assert.Len(t, c.Bullets, 5)
	assert.Len(t, c.AccessoryImages, 5)
	assert.Equal(t, 999, c.Quantity)
}

func TestMatrix_OneUniqueSKUPerLabel(t *testing.T) {
	c := Default()

	vars, err := c.Matrix("Funny Dog", "")
	require.NoError(t, err)
	require.Len(t, vars, len(c.Variations))

	seen := map[string]bool{}
	for i, v := range vars {
		assert.Equal(t, c.Variations[i], v.Label)
		assert.False(t, seen[v.SKU], "duplicate sku %s", v.SKU)
		seen[v.SKU] = true

		assert.True(t, strings.HasPrefix(v.SKU, "FunnyDog-"), v.SKU)
		assert.Equal(t, 3, strings.Count(v.SKU, SKUDelimiter), "sku %s must have exactly 3 delimiters", v.SKU)
		assert.NotContains(t, v.SKU, " ")
	}
}

func TestMatrix_Deterministic(t *testing.T) {
	c := Default()

	a, err := c.Matrix("Funny Dog", "")
	require.NoError(t, err)
	b, err := c.Matrix("Funny Dog", "")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMatrix_KnownSKUs(t *testing.T) {
	vars, err := Default().Matrix("Funny Dog", "")
	require.NoError(t, err)

	assert.Equal(t, "FunnyDog-Newborn-White-SS", vars[0].SKU)
	assert.Equal(t, "FunnyDog-Newborn-White-LS", vars[1].SKU)
	assert.Equal(t, "FunnyDog-0to3M-White-SS", vars[3].SKU)
	assert.Equal(t, "FunnyDog-24M-Natural-SS", vars[26].SKU)
}

func TestMatrix_PriceTiersCycleByLabel(t *testing.T) {
	vars, err := Default().Matrix("Funny Dog", "")
	require.NoError(t, err)

	tiers := []string{"21.99", "22.99", "27.99"}
	for i, v := range vars {
		assert.Equal(t, tiers[i%3], v.Price.Amount.StringFixed(2), "label %s", v.Label)
	}
}

func TestMatrix_PriceOverrideByLabel(t *testing.T) {
	c := Default()
	c.Prices = map[string]decimal.Decimal{
		"24M Natural Short Sleeve": decimal.RequireFromString("30.00"),
	}

	vars, err := c.Matrix("Funny Dog", "")
	require.NoError(t, err)
	assert.Equal(t, "30.00", vars[26].Price.Amount.StringFixed(2))
	assert.Equal(t, "21.99", vars[0].Price.Amount.StringFixed(2))
	assert.Equal(t, "30.00 USD", vars[26].Price.String())
}

func TestMatrix_NormalizesPunctuationInTitle(t *testing.T) {
	vars, err := Default().Matrix("  Funny, Dog!! (v2) ", "")
	require.NoError(t, err)
	assert.Equal(t, "FunnyDogv2-Newborn-White-SS", vars[0].SKU)
}

func TestMatrix_TokenIsStable(t *testing.T) {
	token := ContentToken([]byte("png-bytes"))
	assert.Len(t, token, 6)
	assert.Equal(t, token, ContentToken([]byte("png-bytes")))
	assert.NotEqual(t, token, ContentToken([]byte("other-bytes")))

	vars, err := Default().Matrix("Funny Dog", token)
	require.NoError(t, err)
	assert.Equal(t, "FunnyDog"+token+"-Newborn-White-SS", vars[0].SKU)
	assert.Equal(t, "FunnyDog"+token+"-Parent", ParentSKU(Prefix("Funny Dog", token)))
}

func TestMatrix_EmptyTitleRejected(t *testing.T) {
	_, err := Default().Matrix(" !! ", "")
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseLabel(t *testing.T) {
	v, err := ParseLabel("0-3M Heather Grey Long Sleeve")
	require.NoError(t, err)
	assert.Equal(t, "0-3M", v.Size)
	assert.Equal(t, "Heather Grey", v.Color)
	assert.Equal(t, SleeveLong, v.Sleeve)

	_, err = ParseLabel("Newborn White Sleeveless")
	assert.Error(t, err)

	_, err = ParseLabel("Newborn White Medium Sleeve")
	assert.Error(t, err)
}

func TestValidate_RejectsCollidingLabels(t *testing.T) {
	c := Default()
	c.Variations = []string{"0-3M White Short Sleeve", "0-3M  White  Short Sleeve"}

	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestValidate_RequiresPrice(t *testing.T) {
	c := Default()
	c.PriceTiers = nil

	assert.ErrorIs(t, c.Validate(), ErrInvalidCatalog)
}

func TestParse_RejectsContentBeyondFeedLimits(t *testing.T) {
	_, err := Parse([]byte("bullets: [a, b, c, d, e, f]\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
	assert.ErrorContains(t, err, "bullets")

	_, err = Parse([]byte("accessory_images: [u1, u2, u3, u4, u5, u6]\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
	assert.ErrorContains(t, err, "accessory images")

	c, err := Parse([]byte("bullets: [a, b, c, d, e]\n"))
	require.NoError(t, err)
	assert.Len(t, c.Bullets, MaxBullets)
}

func TestParse_FillsDefaults(t *testing.T) {
	c, err := Parse([]byte(`
brand: TEST BRAND
variations:
  - "Newborn White Short Sleeve"
  - "12M Pink Long Sleeve"
price_tiers: ["10.50"]
prices:
  "12M Pink Long Sleeve": 12.75
`))
	require.NoError(t, err)

	assert.Equal(t, "TEST BRAND", c.Brand)
	assert.Equal(t, "TEST BRAND", c.Vendor)
	assert.Equal(t, 999, c.Quantity)
	assert.Equal(t, "USD", c.Currency)
	assert.Len(t, c.Bullets, 5)

	vars, err := c.Matrix("Cat", "")
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "10.50", vars[0].Price.Amount.StringFixed(2))
	assert.Equal(t, "12.75", vars[1].Price.Amount.StringFixed(2))
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("variations: [unterminated"))
	assert.Error(t, err)
}

func TestStemAndHandle(t *testing.T) {
	c := Default()

	stem := StemFromFilename("/tmp/funny-dog_v2.png")
	assert.Equal(t, "Funny Dog V2", stem)
	assert.Equal(t, "Funny Dog V2 - Baby Boy Girl Clothes Bodysuit Funny Cute", c.DisplayTitle(stem))
	assert.Equal(t, "funny-dog-v2-baby-boy-girl-clothes-bodysuit-funny-cute", c.Handle(stem))
}
