// Package feed builds marketplace feed documents (one parent record plus its
// variant children) and encodes them for submission.
package feed

type Kind string

const (
	KindListings  Kind = "listings"
	KindInventory Kind = "inventory"
	KindImages    Kind = "images"
)

type Operation string

const (
	OperationUpdate        Operation = "update" // create or fully replace
	OperationPartialUpdate Operation = "partial_update"
	OperationDelete        Operation = "delete"
)

type Relationship string

const (
	RelationshipNone   Relationship = ""
	RelationshipParent Relationship = "parent"
	RelationshipChild  Relationship = "child"
)

// Record is one message (JSON) or row (tabular) of a feed.
type Record struct {
	MessageID    int          `json:"message_id"`
	SKU          string       `json:"sku"`
	Operation    Operation    `json:"operation"`
	Relationship Relationship `json:"relationship,omitempty"`
	ParentSKU    string       `json:"parent_sku,omitempty"`
	Attributes   Attributes   `json:"attributes,omitempty"`
}

// Document is an ordered feed. Listing documents start with a parent record
// followed by its children; batches repeat that block per product.
type Document struct {
	Kind    Kind     `json:"kind"`
	Records []Record `json:"records"`
}

func (d Document) Len() int { return len(d.Records) }

// Parents returns the parent records in document order.
func (d Document) Parents() []Record {
	var out []Record
	for _, r := range d.Records {
		if r.Relationship == RelationshipParent {
			out = append(out, r)
		}
	}
	return out
}

// ChildSKUs lists every non-parent SKU in document order.
func (d Document) ChildSKUs() []string {
	out := make([]string, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Relationship == RelationshipParent {
			continue
		}
		out = append(out, r.SKU)
	}
	return out
}

func (d Document) clone() Document {
	out := Document{Kind: d.Kind, Records: make([]Record, len(d.Records))}
	for i, r := range d.Records {
		r.Attributes = r.Attributes.Clone()
		out.Records[i] = r
	}
	return out
}
