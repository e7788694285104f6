package shipping

import (
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

// Rules are the business rules applied on top of carrier rates.
type Rules struct {
	// FreeShippingThresholdCents of zero disables free shipping.
	FreeShippingThresholdCents int64
}

func (r Rules) qualifies(subtotalCents int64) bool {
	return r.FreeShippingThresholdCents > 0 && subtotalCents >= r.FreeShippingThresholdCents
}

// Assemble sorts options, applies free shipping to the cheapest one and picks it
// as recommended. The input slice is not modified.
func Assemble(options []ShippingOption, subtotalCents int64, rules Rules) (Quote, error) {
	if len(options) == 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeUnserviceable, "no shipping options available for destination")
	}

	sorted := SortOptions(append([]ShippingOption(nil), options...))

	free := rules.qualifies(subtotalCents)
	if free {
		cheapest := sorted[0]
		original := cheapest.Rate
		cheapest.OriginalRate = &original
		cheapest.Rate = 0
		cheapest.Free = true
		sorted[0] = cheapest
	}

	return Quote{
		Success:      true,
		Options:      sorted,
		Recommended:  sorted[0],
		FreeShipping: free,
		Subtotal:     subtotalCents,
		Currency:     sorted[0].Currency,
	}, nil
}
