package easypost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func TestCreateShipmentRequestAndRates(t *testing.T) {
	respBody := `{"id":"shp_1","rates":[{"id":"rate_1","carrier":"USPS","service":"Priority","rate":"7.58","currency":"usd","delivery_days":2},{"id":"rate_2","carrier":"UPS","service":"Ground","rate":"12.1","currency":"USD","delivery_days":null}]}`

	var capturedURL string
	var capturedUser, capturedPass string
	var payload struct {
		Shipment ShipmentRequest `json:"shipment"`
	}

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedUser, capturedPass, _ = req.BasicAuth()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusCreated,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("ep-key", WithBaseURL("http://easypost.test/v2/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	rates, err := client.CreateShipment(context.Background(), ShipmentRequest{
		ToAddress:   Address{Zip: "94107", Country: "US"},
		FromAddress: Address{Zip: "10001", Country: "US"},
		Parcel:      Parcel{Length: 10, Width: 8, Height: 4, Weight: 20},
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	if capturedURL != "http://easypost.test/v2/shipments" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedUser != "ep-key" || capturedPass != "" {
		t.Fatalf("unexpected basic auth %q:%q", capturedUser, capturedPass)
	}
	if payload.Shipment.Parcel.Weight != 20 || payload.Shipment.ToAddress.Zip != "94107" {
		t.Fatalf("unexpected payload %+v", payload.Shipment)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}
	if rates[0].AmountCents != 758 || rates[0].Currency != "USD" || rates[0].DeliveryDays == nil || *rates[0].DeliveryDays != 2 {
		t.Fatalf("unexpected first rate %+v", rates[0])
	}
	if rates[1].AmountCents != 1210 || rates[1].DeliveryDays != nil {
		t.Fatalf("unexpected second rate %+v", rates[1])
	}
}

func TestCreateShipmentNon2xx(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"code":"APIKEY.INACTIVE"}}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("ep-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateShipment(context.Background(), ShipmentRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", pkgerrors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestCreateShipmentRejectsBadRate(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"rates":[{"carrier":"USPS","service":"Priority","rate":"n/a"}]}`)),
			Header:     http.Header{},
		}, nil
	})
	client, _ := NewClient("ep-key", WithHTTPClient(&http.Client{Transport: rt}))

	if _, err := client.CreateShipment(context.Background(), ShipmentRequest{}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for blank key")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
