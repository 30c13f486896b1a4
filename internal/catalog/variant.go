package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	SKUDelimiter = "-"
	parentSuffix = "Parent"
)

type Sleeve string

const (
	SleeveShort Sleeve = "SS"
	SleeveLong  Sleeve = "LS"
)

// Variant is one cell of the variation matrix.
type Variant struct {
	Label  string       `json:"label"`
	Size   string       `json:"size"`
	Color  string       `json:"color"`
	Sleeve Sleeve       `json:"sleeve"`
	SKU    string       `json:"sku"`
	Price  domain.Money `json:"price"`
}

func (s Sleeve) Label() string {
	if s == SleeveLong {
		return "Long Sleeve"
	}
	return "Short Sleeve"
}

// ParseLabel splits "0-3M White Short Sleeve" into size, color and sleeve.
func ParseLabel(label string) (Variant, error) {
	fields := strings.Fields(label)
	if len(fields) < 4 {
		return Variant{}, fmt.Errorf("label %q: want \"<size> <color> <Short|Long> Sleeve\"", label)
	}
	if !strings.EqualFold(fields[len(fields)-1], "sleeve") {
		return Variant{}, fmt.Errorf("label %q: missing sleeve length", label)
	}

	var sleeve Sleeve
	switch strings.ToLower(fields[len(fields)-2]) {
	case "short":
		sleeve = SleeveShort
	case "long":
		sleeve = SleeveLong
	default:
		return Variant{}, fmt.Errorf("label %q: unknown sleeve length %q", label, fields[len(fields)-2])
	}

	return Variant{
		Label:  strings.Join(fields, " "),
		Size:   fields[0],
		Color:  strings.Join(fields[1:len(fields)-2], " "),
		Sleeve: sleeve,
	}, nil
}

func (v Variant) suffix() string {
	return strings.Join([]string{normalizeSize(v.Size), normalizeWord(v.Color), string(v.Sleeve)}, SKUDelimiter)
}

// NormalizeTitle strips whitespace and punctuation so the title can be used
// as a SKU prefix. Letters and digits keep their case.
func NormalizeTitle(title string) string {
	return normalizeWord(title)
}

func normalizeWord(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeSize keeps ranges readable without reusing the delimiter:
// "0-3M" becomes "0to3M".
func normalizeSize(size string) string {
	return normalizeWord(strings.ReplaceAll(size, "-", "to"))
}

// Prefix is the title-derived part shared by every SKU of one product. The
// optional token disambiguates equal titles and must itself be stable.
func Prefix(title, token string) string {
	return NormalizeTitle(title) + strings.ToUpper(normalizeWord(token))
}

func ParentSKU(prefix string) string {
	return prefix + SKUDelimiter + parentSuffix
}

func SKU(prefix string, v Variant) string {
	return prefix + SKUDelimiter + v.suffix()
}

// Matrix expands the catalog for one title. The same (title, token) always
// yields the same SKUs in the same order.
func (c Catalog) Matrix(title, token string) ([]Variant, error) {
	prefix := Prefix(title, token)
	if prefix == "" {
		return nil, fmt.Errorf("%w: title %q has no usable characters", ErrInvalidCatalog, title)
	}

	out := make([]Variant, 0, len(c.Variations))
	seen := make(map[string]struct{}, len(c.Variations))

	for i, label := range c.Variations {
		v, err := ParseLabel(label)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}

		price, ok := c.PriceFor(i, label)
		if !ok {
			return nil, fmt.Errorf("%w: no price for %q", ErrInvalidCatalog, label)
		}

		v.SKU = SKU(prefix, v)
		v.Price = domain.Money{Amount: price, Currency: c.Currency}

		if _, dup := seen[v.SKU]; dup {
			return nil, fmt.Errorf("%w: duplicate sku %s", ErrInvalidCatalog, v.SKU)
		}
		seen[v.SKU] = struct{}{}

		out = append(out, v)
	}

	return out, nil
}

// ContentToken derives a stable disambiguation token from the image bytes.
func ContentToken(data []byte) string {
	sum := sha256.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:3]))
}

// StemFromFilename turns "funny-dog_v2.png" into "Funny Dog V2".
func StemFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(strings.Join(strings.Fields(base), " "))
}

// DisplayTitle is the storefront and marketplace item name for a title.
func (c Catalog) DisplayTitle(title string) string {
	if c.ItemNameSuffix == "" {
		return title
	}
	return title + " - " + c.ItemNameSuffix
}

// Handle is the storefront URL handle for a title.
func (c Catalog) Handle(title string) string {
	return slug(title + " " + c.ItemNameSuffix)
}

func slug(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}
