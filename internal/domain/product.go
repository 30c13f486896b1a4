package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// String renders the amount with two decimals, e.g. "21.99 USD".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// ProductRecord is the storefront product created once per submission.
// The feed builder only reads it.
type ProductRecord struct {
	Title       string   `json:"title"`
	Handle      string   `json:"handle"`
	Description string   `json:"description"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"product_type"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    string   `json:"image_url"`
}

func (p ProductRecord) TagList() string {
	return strings.Join(p.Tags, ",")
}
