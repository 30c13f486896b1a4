package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
)

var ErrInvalidInput = errors.New("invalid feed input")

type Input struct {
	// Title is the product stem, e.g. "Funny Dog". SKUs derive from it.
	Title    string
	ImageURL string
	Catalog  catalog.Catalog

	// Token is an optional stable disambiguator appended to the SKU prefix.
	Token string

	Operation Operation

	// ParentImagesOnly keeps image attributes off the child records.
	ParentImagesOnly bool
}

// Build produces a listings document: one parent record followed by one child
// per catalog variation, message ids 1..N+1.
func Build(in Input) (Document, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return Document{}, fmt.Errorf("%w: image url is required", ErrInvalidInput)
	}

	vars, err := in.Catalog.Matrix(in.Title, in.Token)
	if err != nil {
		return Document{}, err
	}

	op := in.Operation
	if op == "" {
		op = OperationUpdate
	}

	prefix := catalog.Prefix(in.Title, in.Token)
	parentSKU := catalog.ParentSKU(prefix)
	c := in.Catalog

	doc := Document{
		Kind:    KindListings,
		Records: make([]Record, 0, len(vars)+1),
	}

	parent := Record{
		SKU:          parentSKU,
		Operation:    op,
		Relationship: RelationshipParent,
		Attributes:   Attributes{},
	}
	if err := setCommon(parent.Attributes, c, in.Title, in.ImageURL, true); err != nil {
		return Document{}, err
	}
	doc.Records = append(doc.Records, parent)

	for _, v := range vars {
		child := Record{
			SKU:          v.SKU,
			Operation:    op,
			Relationship: RelationshipChild,
			ParentSKU:    parentSKU,
			Attributes:   Attributes{},
		}

		a := child.Attributes
		if err := setCommon(a, c, in.Title, in.ImageURL, !in.ParentImagesOnly); err != nil {
			return Document{}, err
		}
		if err := a.Set(AttrPrice, Value{Value: v.Price.Amount.StringFixed(2), Currency: v.Price.Currency}); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrQuantity, strconv.Itoa(c.Quantity)); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrFulfillmentLatency, strconv.Itoa(c.FulfillmentLatency)); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrSize, v.Size); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrColor, v.Color); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrSleeve, v.Sleeve.Label()); err != nil {
			return Document{}, err
		}

		doc.Records = append(doc.Records, child)
	}

	Renumber(&doc)

	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func setCommon(a Attributes, c catalog.Catalog, title, imageURL string, images bool) error {
	if err := a.SetStrings(AttrItemName, c.DisplayTitle(title)); err != nil {
		return err
	}
	if err := a.SetStrings(AttrBrand, c.Brand); err != nil {
		return err
	}
	if err := a.SetStrings(AttrProductType, c.ProductType); err != nil {
		return err
	}
	if err := a.SetStrings(AttrVariationTheme, c.VariationTheme); err != nil {
		return err
	}
	if err := a.SetStrings(AttrBulletPoint, c.Bullets...); err != nil {
		return err
	}
	if err := a.SetStrings(AttrDescription, c.Description); err != nil {
		return err
	}

	if !images {
		return nil
	}
	if err := a.SetStrings(AttrMainImage, imageURL); err != nil {
		return err
	}
	return a.SetStrings(AttrOtherImage, c.AccessoryImages...)
}

// InventoryFrom derives an inventory-only document covering every child SKU
// of a listings document, keeping their quantity and handling time.
func InventoryFrom(doc Document, c catalog.Catalog) (Document, error) {
	if doc.Kind != KindListings {
		return Document{}, fmt.Errorf("%w: inventory derives from listings, got %s", ErrInvalidDocument, doc.Kind)
	}
	out := Document{Kind: KindInventory}

	for _, r := range doc.Records {
		if r.Relationship == RelationshipParent {
			continue
		}

		qty := r.Attributes.First(AttrQuantity)
		if qty == "" {
			qty = strconv.Itoa(c.Quantity)
		}
		latency := r.Attributes.First(AttrFulfillmentLatency)
		if latency == "" {
			latency = strconv.Itoa(c.FulfillmentLatency)
		}

		a := Attributes{}
		if err := a.SetStrings(AttrQuantity, qty); err != nil {
			return Document{}, err
		}
		if err := a.SetStrings(AttrFulfillmentLatency, latency); err != nil {
			return Document{}, err
		}

		out.Records = append(out.Records, Record{
			SKU:        r.SKU,
			Operation:  OperationUpdate,
			Attributes: a,
		})
	}

	Renumber(&out)
	return out, nil
}

// ImagesFrom derives an image-association document: one Main record per SKU
// carrying a main image, then PT1..PTn for its secondary images.
func ImagesFrom(doc Document) (Document, error) {
	if doc.Kind != KindListings {
		return Document{}, fmt.Errorf("%w: images derive from listings, got %s", ErrInvalidDocument, doc.Kind)
	}
	out := Document{Kind: KindImages}

	add := func(sku, imageType, location string) error {
		a := Attributes{}
		if err := a.SetStrings(AttrImageType, imageType); err != nil {
			return err
		}
		if err := a.SetStrings(AttrMainImage, location); err != nil {
			return err
		}
		out.Records = append(out.Records, Record{
			SKU:        sku,
			Operation:  OperationUpdate,
			Attributes: a,
		})
		return nil
	}

	for _, r := range doc.Records {
		main := r.Attributes.First(AttrMainImage)
		if main == "" {
			continue
		}
		if err := add(r.SKU, "Main", main); err != nil {
			return Document{}, err
		}
		for i, u := range r.Attributes.Strings(AttrOtherImage) {
			if err := add(r.SKU, "PT"+strconv.Itoa(i+1), u); err != nil {
				return Document{}, err
			}
		}
	}

	Renumber(&out)
	return out, nil
}
