package feed

import "github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"

var InventoryHeader = []string{"sku", "quantity", "fulfillment_latency"}

// Inventory encodes quantity-only updates, one row per SKU.
type Inventory struct{}

func (Inventory) Name() string              { return "inventory" }
func (Inventory) Kind() Kind                { return KindInventory }
func (Inventory) FeedType() domain.FeedType { return domain.FeedTypeInventory }
func (Inventory) ContentType() string       { return tsvContentType }

func (Inventory) Encode(doc Document) ([]byte, error) {
	rows := make([][]string, 0, len(doc.Records)+1)
	rows = append(rows, InventoryHeader)

	for _, r := range doc.Records {
		rows = append(rows, []string{
			r.SKU,
			r.Attributes.First(AttrQuantity),
			r.Attributes.First(AttrFulfillmentLatency),
		})
	}

	return writeTSV(rows)
}
