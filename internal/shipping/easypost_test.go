package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-api/pkg/easypost"
)

type stubShipments struct {
	req   easypost.ShipmentRequest
	rates []easypost.Rate
	err   error
}

func (s *stubShipments) CreateShipment(_ context.Context, req easypost.ShipmentRequest) ([]easypost.Rate, error) {
	s.req = req
	return s.rates, s.err
}

func TestEasyPostRatesMapsRequestAndFiltersCarriers(t *testing.T) {
	client := &stubShipments{rates: []easypost.Rate{
		{Carrier: "USPS", Service: "Priority", AmountCents: 758, Currency: "USD", DeliveryDays: intPtr(2)},
		{Carrier: "FedEx", Service: "Ground", AmountCents: 990, Currency: "USD"},
	}}
	adapter := NewEasyPostRates(client, Origin{Name: "Warehouse", PostalCode: "10001", Country: "US"}, []string{" usps "})

	options, err := adapter.Rates(context.Background(), RateRequest{
		Parcel:      Parcel{WeightOz: 20, LengthIn: 10, WidthIn: 8, HeightIn: 4},
		Destination: Destination{Country: "US", PostalCode: "94107", State: "CA"},
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}

	if client.req.FromAddress.Zip != "10001" || client.req.ToAddress.Zip != "94107" || client.req.ToAddress.State != "CA" {
		t.Fatalf("unexpected addresses %+v", client.req)
	}
	if client.req.Parcel.Weight != 20 || client.req.Parcel.Length != 10 {
		t.Fatalf("unexpected parcel %+v", client.req.Parcel)
	}
	if len(options) != 1 || options[0].Carrier != "USPS" || options[0].Rate != 758 || options[0].Source != SourceLive {
		t.Fatalf("unexpected options %+v", options)
	}
	if options[0].EstimatedDays == nil || *options[0].EstimatedDays != 2 {
		t.Fatalf("expected delivery days carried over")
	}
}

func TestEasyPostRatesPropagatesErrors(t *testing.T) {
	adapter := NewEasyPostRates(&stubShipments{err: errors.New("401")}, Origin{}, nil)
	if _, err := adapter.Rates(context.Background(), RateRequest{}); err == nil {
		t.Fatalf("expected error")
	}
	if adapter.Name() != "easypost" {
		t.Fatalf("unexpected name %q", adapter.Name())
	}
}
