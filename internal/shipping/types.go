package shipping

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Rate sources reported on a quote.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// Dimensions are inches.
type Dimensions struct {
	L float64 `json:"l" validate:"gt=0"`
	W float64 `json:"w" validate:"gt=0"`
	H float64 `json:"h" validate:"gt=0"`
}

// CartItemInput is one storefront cart line. Weight is ounces; price is major units.
type CartItemInput struct {
	SKU        string           `json:"sku" validate:"required_without=ID"`
	ID         string           `json:"id"`
	Quantity   int              `json:"quantity" validate:"min=1"`
	Weight     *float64         `json:"weight" validate:"omitempty,gte=0"`
	Dimensions *Dimensions      `json:"dimensions"`
	Price      *decimal.Decimal `json:"price"`
}

type Destination struct {
	Country    string `json:"country" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	State      string `json:"state,omitempty"`
	City       string `json:"city,omitempty"`
}

// QuoteRequest is the raw quote body. Cart stays undecoded until Normalize so
// a malformed cart can be reported per field.
type QuoteRequest struct {
	Cart        json.RawMessage `json:"cart"`
	Destination *Destination    `json:"destination"`
}

// CartItem is a validated cart line.
type CartItem struct {
	SKU        string
	ID         string
	Quantity   int
	WeightOz   *float64
	Dimensions *Dimensions
	PriceCents *int64
}

// Keys returns the identifiers used for catalog lookups, id first.
func (c CartItem) Keys() []string {
	keys := make([]string, 0, 2)
	if c.ID != "" {
		keys = append(keys, c.ID)
	}
	if c.SKU != "" && c.SKU != c.ID {
		keys = append(keys, c.SKU)
	}
	return keys
}

type NormalizedRequest struct {
	Items       []CartItem
	Destination Destination
}

// Parcel is the aggregate package sent to carriers. Weight is ounces, dimensions inches.
type Parcel struct {
	WeightOz float64 `json:"weight"`
	LengthIn float64 `json:"length"`
	WidthIn  float64 `json:"width"`
	HeightIn float64 `json:"height"`
}

// ShippingOption is one priced service. Rate and OriginalRate are minor units.
type ShippingOption struct {
	Carrier       string `json:"carrier"`
	Service       string `json:"service"`
	Rate          int64  `json:"rate"`
	Currency      string `json:"currency"`
	EstimatedDays *int   `json:"estimatedDays,omitempty"`
	Free          bool   `json:"free,omitempty"`
	OriginalRate  *int64 `json:"originalRate,omitempty"`
	Source        string `json:"source"`
}

type RateRequest struct {
	Parcel      Parcel
	Destination Destination
}

// Quote is the successful quote payload. Options is never empty.
type Quote struct {
	Success      bool             `json:"success"`
	Options      []ShippingOption `json:"options"`
	Recommended  ShippingOption   `json:"recommended"`
	Source       string           `json:"source"`
	FreeShipping bool             `json:"freeShipping"`
	Subtotal     int64            `json:"subtotal"`
	Currency     string           `json:"currency"`
	Parcel       Parcel           `json:"parcel"`
}
