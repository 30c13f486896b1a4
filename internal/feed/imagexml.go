package feed

import (
	"bytes"
	"encoding/xml"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

type amazonEnvelope struct {
	XMLName     xml.Name       `xml:"AmazonEnvelope"`
	XSI         string         `xml:"xmlns:xsi,attr"`
	Schema      string         `xml:"xsi:noNamespaceSchemaLocation,attr"`
	Header      envelopeHeader `xml:"Header"`
	MessageType string         `xml:"MessageType"`
	Messages    []imageMessage `xml:"Message"`
}

type envelopeHeader struct {
	DocumentVersion    string `xml:"DocumentVersion"`
	MerchantIdentifier string `xml:"MerchantIdentifier"`
}

type imageMessage struct {
	MessageID     int          `xml:"MessageID"`
	OperationType string       `xml:"OperationType"`
	ProductImage  productImage `xml:"ProductImage"`
}

type productImage struct {
	SKU           string `xml:"SKU"`
	ImageType     string `xml:"ImageType"`
	ImageLocation string `xml:"ImageLocation,omitempty"`
}

// ImageXML encodes image-association documents (see ImagesFrom) as the
// envelope/header/message XML feed.
type ImageXML struct {
	MerchantID string
}

func (ImageXML) Name() string              { return "image" }
func (ImageXML) Kind() Kind                { return KindImages }
func (ImageXML) FeedType() domain.FeedType { return domain.FeedTypeProductImage }
func (ImageXML) ContentType() string       { return "text/xml; charset=UTF-8" }

func (e ImageXML) Encode(doc Document) ([]byte, error) {
	env := amazonEnvelope{
		XSI:    "http://www.w3.org/2001/XMLSchema-instance",
		Schema: "amzn-envelope.xsd",
		Header: envelopeHeader{
			DocumentVersion:    "1.01",
			MerchantIdentifier: e.MerchantID,
		},
		MessageType: "ProductImage",
		Messages:    make([]imageMessage, 0, len(doc.Records)),
	}

	for _, r := range doc.Records {
		msg := imageMessage{
			MessageID:     r.MessageID,
			OperationType: tabularOperation(r.Operation),
			ProductImage: productImage{
				SKU:       r.SKU,
				ImageType: r.Attributes.First(AttrImageType),
			},
		}
		if r.Operation != OperationDelete {
			msg.ProductImage.ImageLocation = r.Attributes.First(AttrMainImage)
		}
		env.Messages = append(env.Messages, msg)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
