package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	jsonMainImage     = "main_product_image_locator"
	jsonOtherImage    = "other_product_image_locator_"
	jsonParentage     = "parentage_level"
	jsonRelationship  = "child_parent_sku_relationship"
	jsonOffer         = "purchasable_offer"
	jsonAvailability  = "fulfillment_availability"
	defaultLocale     = "en_US"
	jsonFeedVersion   = "2.0"
	requirementsFull  = "LISTING"
	fulfillmentMFN    = "DEFAULT"
	variationRelation = "variation"
)

type jsonFeed struct {
	Header   jsonHeader    `json:"header"`
	Messages []jsonMessage `json:"messages"`
}

type jsonHeader struct {
	SellerID    string `json:"sellerId"`
	Version     string `json:"version"`
	IssueLocale string `json:"issueLocale"`
}

type jsonMessage struct {
	MessageID     int                   `json:"messageId"`
	SKU           string                `json:"sku"`
	OperationType string                `json:"operationType"`
	ProductType   string                `json:"productType,omitempty"`
	Requirements  string                `json:"requirements,omitempty"`
	Attributes    map[string][]jsonAttr `json:"attributes,omitempty"`
}

// jsonAttr covers every attribute value shape the listings schema uses here.
type jsonAttr struct {
	Value         string `json:"value,omitempty"`
	Name          string `json:"name,omitempty"`
	MediaLocation string `json:"media_location,omitempty"`
	LanguageTag   string `json:"language_tag,omitempty"`
	MarketplaceID string `json:"marketplace_id,omitempty"`

	ChildRelationshipType string `json:"child_relationship_type,omitempty"`
	ParentSKU             string `json:"parent_sku,omitempty"`

	Currency string      `json:"currency,omitempty"`
	OurPrice []jsonPrice `json:"our_price,omitempty"`

	FulfillmentChannelCode string `json:"fulfillment_channel_code,omitempty"`
	Quantity               *int   `json:"quantity,omitempty"`
	LeadTimeToShipMaxDays  *int   `json:"lead_time_to_ship_max_days,omitempty"`
}

type jsonPrice struct {
	Schedule []jsonSchedule `json:"schedule"`
}

type jsonSchedule struct {
	ValueWithTax json.Number `json:"value_with_tax"`
}

// JSONListings encodes listings as a structured JSON listings feed with one
// message per record.
type JSONListings struct {
	SellerID      string
	MarketplaceID string
	LanguageTag   string
}

func (JSONListings) Name() string              { return "json" }
func (JSONListings) Kind() Kind                { return KindListings }
func (JSONListings) FeedType() domain.FeedType { return domain.FeedTypeJSONListings }
func (JSONListings) ContentType() string       { return "application/json; charset=UTF-8" }

func (e JSONListings) locale() string {
	if e.LanguageTag == "" {
		return defaultLocale
	}
	return e.LanguageTag
}

func (e JSONListings) Encode(doc Document) ([]byte, error) {
	out := jsonFeed{
		Header: jsonHeader{
			SellerID:    e.SellerID,
			Version:     jsonFeedVersion,
			IssueLocale: e.locale(),
		},
		Messages: make([]jsonMessage, 0, len(doc.Records)),
	}

	for _, r := range doc.Records {
		msg, err := e.message(r)
		if err != nil {
			return nil, fmt.Errorf("sku %s: %w", r.SKU, err)
		}
		out.Messages = append(out.Messages, msg)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e JSONListings) message(r Record) (jsonMessage, error) {
	mkt := e.MarketplaceID

	msg := jsonMessage{
		MessageID:     r.MessageID,
		SKU:           r.SKU,
		OperationType: jsonOperation(r.Operation),
		ProductType:   r.Attributes.First(AttrProductType),
		Attributes:    map[string][]jsonAttr{},
	}
	if r.Operation == OperationUpdate {
		msg.Requirements = requirementsFull
	}

	switch r.Relationship {
	case RelationshipParent:
		msg.Attributes[jsonParentage] = []jsonAttr{{Value: string(RelationshipParent), MarketplaceID: mkt}}
	case RelationshipChild:
		msg.Attributes[jsonParentage] = []jsonAttr{{Value: string(RelationshipChild), MarketplaceID: mkt}}
		msg.Attributes[jsonRelationship] = []jsonAttr{{
			ChildRelationshipType: variationRelation,
			ParentSKU:             r.ParentSKU,
			MarketplaceID:         mkt,
		}}
	}

	var avail *jsonAttr

	for name, vals := range r.Attributes {
		switch name {
		case AttrProductType:
			// carried on the message
		case AttrVariationTheme:
			msg.Attributes[name] = []jsonAttr{{Name: vals[0].Value}}
		case AttrMainImage:
			msg.Attributes[jsonMainImage] = []jsonAttr{{MediaLocation: vals[0].Value, MarketplaceID: mkt}}
		case AttrOtherImage:
			for i, v := range vals {
				msg.Attributes[jsonOtherImage+strconv.Itoa(i+1)] = []jsonAttr{{MediaLocation: v.Value, MarketplaceID: mkt}}
			}
		case AttrPrice:
			msg.Attributes[jsonOffer] = []jsonAttr{{
				MarketplaceID: mkt,
				Currency:      vals[0].Currency,
				OurPrice:      []jsonPrice{{Schedule: []jsonSchedule{{ValueWithTax: json.Number(vals[0].Value)}}}},
			}}
		case AttrQuantity, AttrFulfillmentLatency:
			n, err := strconv.Atoi(vals[0].Value)
			if err != nil {
				return jsonMessage{}, fmt.Errorf("%s: %w", name, err)
			}
			if avail == nil {
				avail = &jsonAttr{FulfillmentChannelCode: fulfillmentMFN}
			}
			if name == AttrQuantity {
				avail.Quantity = &n
			} else {
				avail.LeadTimeToShipMaxDays = &n
			}
		default:
			attrs := make([]jsonAttr, 0, len(vals))
			for _, v := range vals {
				attrs = append(attrs, jsonAttr{Value: v.Value, LanguageTag: e.locale(), MarketplaceID: mkt})
			}
			msg.Attributes[name] = attrs
		}
	}

	if avail != nil {
		msg.Attributes[jsonAvailability] = []jsonAttr{*avail}
	}

	return msg, nil
}

func jsonOperation(op Operation) string {
	switch op {
	case OperationPartialUpdate:
		return "PARTIAL_UPDATE"
	case OperationDelete:
		return "DELETE"
	default:
		return "UPDATE"
	}
}

func parseJSONOperation(s string) (Operation, error) {
	switch s {
	case "UPDATE":
		return OperationUpdate, nil
	case "PARTIAL_UPDATE":
		return OperationPartialUpdate, nil
	case "DELETE":
		return OperationDelete, nil
	default:
		return "", fmt.Errorf("unknown operationType %q", s)
	}
}

// DecodeJSON parses a JSON listings feed back into a Document.
func DecodeJSON(b []byte) (Document, error) {
	var in jsonFeed
	if err := json.Unmarshal(b, &in); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc := Document{Kind: KindListings, Records: make([]Record, 0, len(in.Messages))}

	for _, m := range in.Messages {
		op, err := parseJSONOperation(m.OperationType)
		if err != nil {
			return Document{}, fmt.Errorf("%w: message %d: %v", ErrInvalidDocument, m.MessageID, err)
		}

		r := Record{
			MessageID:  m.MessageID,
			SKU:        m.SKU,
			Operation:  op,
			Attributes: Attributes{},
		}
		if err := decodeAttributes(&r, m); err != nil {
			return Document{}, fmt.Errorf("%w: message %d: %v", ErrInvalidDocument, m.MessageID, err)
		}

		doc.Records = append(doc.Records, r)
	}

	return doc, nil
}

func decodeAttributes(r *Record, m jsonMessage) error {
	a := r.Attributes
	if err := a.SetStrings(AttrProductType, m.ProductType); err != nil {
		return err
	}

	others := map[int]string{}

	for name, vals := range m.Attributes {
		if len(vals) == 0 {
			continue
		}
		first := vals[0]

		var err error
		switch {
		case name == jsonParentage:
			r.Relationship = Relationship(first.Value)
		case name == jsonRelationship:
			r.ParentSKU = first.ParentSKU
		case name == AttrVariationTheme:
			err = a.SetStrings(name, first.Name)
		case name == jsonMainImage:
			err = a.SetStrings(AttrMainImage, first.MediaLocation)
		case strings.HasPrefix(name, jsonOtherImage):
			idx, convErr := strconv.Atoi(strings.TrimPrefix(name, jsonOtherImage))
			if convErr != nil {
				return fmt.Errorf("%s: %w", name, convErr)
			}
			others[idx] = first.MediaLocation
		case name == jsonOffer:
			if len(first.OurPrice) == 0 || len(first.OurPrice[0].Schedule) == 0 {
				return fmt.Errorf("%s: missing our_price", name)
			}
			err = a.Set(AttrPrice, Value{
				Value:    first.OurPrice[0].Schedule[0].ValueWithTax.String(),
				Currency: first.Currency,
			})
		case name == jsonAvailability:
			if first.Quantity != nil {
				err = a.SetStrings(AttrQuantity, strconv.Itoa(*first.Quantity))
			}
			if err == nil && first.LeadTimeToShipMaxDays != nil {
				err = a.SetStrings(AttrFulfillmentLatency, strconv.Itoa(*first.LeadTimeToShipMaxDays))
			}
		default:
			vs := make([]Value, 0, len(vals))
			for _, v := range vals {
				vs = append(vs, Value{Value: v.Value})
			}
			err = a.Set(name, vs...)
		}
		if err != nil {
			return err
		}
	}

	if len(others) > 0 {
		idx := make([]int, 0, len(others))
		for i := range others {
			idx = append(idx, i)
		}
		sort.Ints(idx)

		urls := make([]string, 0, len(idx))
		for _, i := range idx {
			urls = append(urls, others[i])
		}
		if err := a.SetStrings(AttrOtherImage, urls...); err != nil {
			return err
		}
	}

	return nil
}
