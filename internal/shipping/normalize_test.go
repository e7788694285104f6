package shipping

import (
	"encoding/json"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	return details
}

func TestNormalizeRequiresDestination(t *testing.T) {
	_, err := Normalize(QuoteRequest{Cart: json.RawMessage(`[]`)})
	details := detailsOf(t, err)
	if details["destination"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
	if pkgerrors.As(err).Message() != "destination is required" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}
}

func TestNormalizeRequiresCountryAndPostalCode(t *testing.T) {
	_, err := Normalize(QuoteRequest{Destination: &Destination{Country: "  "}})
	details := detailsOf(t, err)
	if details["destination.country"] != "is required" || details["destination.postalCode"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestNormalizeTrimsDestinationAndDefaultsCart(t *testing.T) {
	for _, cart := range []string{"", "null", "  "} {
		out, err := Normalize(QuoteRequest{
			Cart:        json.RawMessage(cart),
			Destination: &Destination{Country: " us ", PostalCode: " 94107 ", City: " SF "},
		})
		if err != nil {
			t.Fatalf("cart %q: unexpected error %v", cart, err)
		}
		if out.Destination.Country != "US" || out.Destination.PostalCode != "94107" || out.Destination.City != "SF" {
			t.Fatalf("unexpected destination %+v", out.Destination)
		}
		if out.Items == nil || len(out.Items) != 0 {
			t.Fatalf("expected empty non-nil items, got %#v", out.Items)
		}
	}
}

func TestNormalizeRejectsNonArrayCart(t *testing.T) {
	_, err := Normalize(QuoteRequest{
		Cart:        json.RawMessage(`{"sku":"MUG-1"}`),
		Destination: &Destination{Country: "US", PostalCode: "94107"},
	})
	details := detailsOf(t, err)
	if details["cart"] != "must be an array" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestNormalizeReportsItemFieldPaths(t *testing.T) {
	cart := `[
		{"sku":"MUG-1","quantity":2,"name":"Mug","image":"x.png"},
		{"sku":"TEE-1","quantity":0},
		{"quantity":1},
		{"id":"p4","quantity":1,"weight":-2},
		{"id":"p5","quantity":"two"},
		{"id":"p6","quantity":1,"dimensions":{"l":1,"w":0,"h":1}},
		{"id":"p7","quantity":1,"price":-5},
		"oops"
	]`
	_, err := Normalize(QuoteRequest{
		Cart:        json.RawMessage(cart),
		Destination: &Destination{Country: "US", PostalCode: "94107"},
	})
	details := detailsOf(t, err)

	expected := map[string]string{
		"cart[1].quantity":     "must be at least 1",
		"cart[2].sku":          "is required when id is empty",
		"cart[3].weight":       "must be at least 0",
		"cart[4].quantity":     "must be a whole number",
		"cart[5].dimensions.w": "must be greater than 0",
		"cart[6].price":        "must not be negative",
		"cart[7]":              "must be an object",
	}
	for field, msg := range expected {
		if details[field] != msg {
			t.Fatalf("field %s: expected %q, got %q (all: %v)", field, msg, details[field], details)
		}
	}
	if _, ok := details["cart[0]"]; ok {
		t.Fatalf("valid item with unknown fields should not be reported: %v", details)
	}
	if len(details) != len(expected) {
		t.Fatalf("unexpected extra details: %v", details)
	}
}

func TestNormalizeBuildsCartItems(t *testing.T) {
	out, err := Normalize(QuoteRequest{
		Cart:        json.RawMessage(`[{"id":" p1 ","sku":"MUG-1","quantity":3,"weight":12.5,"dimensions":{"l":5,"w":4,"h":3},"price":"19.99"}]`),
		Destination: &Destination{Country: "ca", PostalCode: "M5V 2T6"},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(out.Items))
	}
	item := out.Items[0]
	if item.ID != "p1" || item.SKU != "MUG-1" || item.Quantity != 3 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.WeightOz == nil || *item.WeightOz != 12.5 {
		t.Fatalf("unexpected weight %v", item.WeightOz)
	}
	if item.PriceCents == nil || *item.PriceCents != 1999 {
		t.Fatalf("unexpected price %v", item.PriceCents)
	}
	if keys := item.Keys(); len(keys) != 2 || keys[0] != "p1" || keys[1] != "MUG-1" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
