package shipping

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-api/pkg/easypost"
)

type shipmentCreator interface {
	CreateShipment(ctx context.Context, req easypost.ShipmentRequest) ([]easypost.Rate, error)
}

// Origin is the fulfillment address parcels ship from.
type Origin struct {
	Name       string
	Street1    string
	City       string
	State      string
	PostalCode string
	Country    string
}

// EasyPostRates adapts the EasyPost client to LiveRates.
type EasyPostRates struct {
	client   shipmentCreator
	origin   easypost.Address
	carriers map[string]struct{}
}

// NewEasyPostRates builds the adapter. An empty carriers list keeps every carrier.
func NewEasyPostRates(client shipmentCreator, origin Origin, carriers []string) *EasyPostRates {
	allow := make(map[string]struct{}, len(carriers))
	for _, c := range carriers {
		if trimmed := strings.ToLower(strings.TrimSpace(c)); trimmed != "" {
			allow[trimmed] = struct{}{}
		}
	}
	return &EasyPostRates{
		client: client,
		origin: easypost.Address{
			Name:    origin.Name,
			Street1: origin.Street1,
			City:    origin.City,
			State:   origin.State,
			Zip:     origin.PostalCode,
			Country: origin.Country,
		},
		carriers: allow,
	}
}

func (e *EasyPostRates) Name() string {
	return "easypost"
}

func (e *EasyPostRates) Rates(ctx context.Context, req RateRequest) ([]ShippingOption, error) {
	rates, err := e.client.CreateShipment(ctx, easypost.ShipmentRequest{
		ToAddress: easypost.Address{
			City:    req.Destination.City,
			State:   req.Destination.State,
			Zip:     req.Destination.PostalCode,
			Country: req.Destination.Country,
		},
		FromAddress: e.origin,
		Parcel: easypost.Parcel{
			Length: req.Parcel.LengthIn,
			Width:  req.Parcel.WidthIn,
			Height: req.Parcel.HeightIn,
			Weight: req.Parcel.WeightOz,
		},
	})
	if err != nil {
		return nil, err
	}

	options := make([]ShippingOption, 0, len(rates))
	for _, rate := range rates {
		if len(e.carriers) > 0 {
			if _, ok := e.carriers[strings.ToLower(rate.Carrier)]; !ok {
				continue
			}
		}
		options = append(options, ShippingOption{
			Carrier:       rate.Carrier,
			Service:       rate.Service,
			Rate:          rate.AmountCents,
			Currency:      rate.Currency,
			EstimatedDays: rate.DeliveryDays,
			Source:        SourceLive,
		})
	}
	return options, nil
}
