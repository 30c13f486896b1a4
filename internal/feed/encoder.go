package feed

import (
	"errors"
	"fmt"
	"sort"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

var ErrUnknownEncoding = errors.New("unknown feed encoding")

// Encoder turns a document into the bytes of one marketplace feed type.
type Encoder interface {
	Name() string
	Kind() Kind
	FeedType() domain.FeedType
	ContentType() string
	Encode(doc Document) ([]byte, error)
}

// Payload is an encoded document ready for upload.
type Payload struct {
	Encoding    string
	FeedType    domain.FeedType
	ContentType string
	Body        []byte
	Records     int
}

type Registry struct {
	byName map[string]Encoder
}

func NewRegistry(encs ...Encoder) Registry {
	m := make(map[string]Encoder, len(encs))
	for _, e := range encs {
		if e == nil {
			continue
		}
		m[e.Name()] = e
	}
	return Registry{byName: m}
}

// DefaultRegistry wires every supported encoding for one seller/marketplace.
func DefaultRegistry(sellerID, marketplaceID string) Registry {
	return NewRegistry(
		Tabular{},
		JSONListings{SellerID: sellerID, MarketplaceID: marketplaceID},
		Inventory{},
		ImageXML{MerchantID: sellerID},
	)
}

func (r Registry) Get(name string) (Encoder, bool) {
	if r.byName == nil {
		return nil, false
	}
	e, ok := r.byName[name]
	return e, ok
}

func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Encode validates doc, checks it matches the encoder's kind and encodes it.
func (r Registry) Encode(name string, doc Document) (Payload, error) {
	enc, ok := r.Get(name)
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q (have %v)", ErrUnknownEncoding, name, r.Names())
	}
	if doc.Kind != enc.Kind() {
		return Payload{}, fmt.Errorf("%w: %s encoding needs a %s document, got %s", ErrInvalidDocument, name, enc.Kind(), doc.Kind)
	}
	if err := Validate(doc); err != nil {
		return Payload{}, err
	}

	body, err := enc.Encode(doc)
	if err != nil {
		return Payload{}, fmt.Errorf("encode %s: %w", name, err)
	}

	return Payload{
		Encoding:    name,
		FeedType:    enc.FeedType(),
		ContentType: enc.ContentType(),
		Body:        body,
		Records:     len(doc.Records),
	}, nil
}
