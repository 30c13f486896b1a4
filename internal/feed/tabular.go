package feed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const tsvContentType = "text/tab-separated-values; charset=UTF-8"

const (
	tabularOtherImages = catalog.MaxAccessoryImages
	tabularBullets     = catalog.MaxBullets
)

// TabularHeader is the fixed, positional column set of the flat-file listing.
var TabularHeader = func() []string {
	h := []string{
		"item_sku", "item_name", "brand_name", "feed_product_type", "update_delete",
		"parent_child", "parent_sku", "relationship_type", "variation_theme",
		"size_name", "color_name", "standard_price", "quantity", "main_image_url",
	}
	for i := 1; i <= tabularOtherImages; i++ {
		h = append(h, "other_image_url"+strconv.Itoa(i))
	}
	for i := 1; i <= tabularBullets; i++ {
		h = append(h, "bullet_point"+strconv.Itoa(i))
	}
	return append(h, "product_description")
}()

// Tabular encodes listings as a tab-delimited flat file.
type Tabular struct{}

func (Tabular) Name() string              { return "tabular" }
func (Tabular) Kind() Kind                { return KindListings }
func (Tabular) FeedType() domain.FeedType { return domain.FeedTypeFlatFileListings }
func (Tabular) ContentType() string       { return tsvContentType }

func (Tabular) Encode(doc Document) ([]byte, error) {
	rows := make([][]string, 0, len(doc.Records)+1)
	rows = append(rows, TabularHeader)

	for _, r := range doc.Records {
		a := r.Attributes

		relType := ""
		if r.Relationship == RelationshipChild {
			relType = "variation"
		}

		row := []string{
			r.SKU,
			a.First(AttrItemName),
			a.First(AttrBrand),
			a.First(AttrProductType),
			tabularOperation(r.Operation),
			string(r.Relationship),
			r.ParentSKU,
			relType,
			a.First(AttrVariationTheme),
			a.First(AttrSize),
			a.First(AttrColor),
			a.First(AttrPrice),
			a.First(AttrQuantity),
			a.First(AttrMainImage),
		}
		others, err := columns(r.SKU, AttrOtherImage, a.Strings(AttrOtherImage), tabularOtherImages)
		if err != nil {
			return nil, err
		}
		bullets, err := columns(r.SKU, AttrBulletPoint, a.Strings(AttrBulletPoint), tabularBullets)
		if err != nil {
			return nil, err
		}
		row = append(row, others...)
		row = append(row, bullets...)
		row = append(row, a.First(AttrDescription))

		rows = append(rows, row)
	}

	return writeTSV(rows)
}

func tabularOperation(op Operation) string {
	switch op {
	case OperationPartialUpdate:
		return "PartialUpdate"
	case OperationDelete:
		return "Delete"
	default:
		return "Update"
	}
}

// columns spreads vals over n positional columns. The flat file has no place
// for extra values, so more than n is an error.
func columns(sku, name string, vals []string, n int) ([]string, error) {
	if len(vals) > n {
		return nil, fmt.Errorf("%w: %s: flat file has %d %s column(s), got %d", ErrCardinality, sku, n, name, len(vals))
	}
	out := make([]string, n)
	copy(out, vals)
	return out, nil
}

func writeTSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
