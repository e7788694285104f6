package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/shipping"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// maxQuoteBodyBytes bounds a quote body; carts are small.
const maxQuoteBodyBytes = 256 << 10

// ShippingQuote handles POST /api/shipping/quote.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithComponent(ctx, "shipping")
		}

		// Normalize trims and validates, so the raw tags must not run first.
		var req shipping.QuoteRequest
		err := validators.DecodeJSONBody(r, &req,
			validators.AllowUnknownFields(),
			validators.SkipValidation(),
			validators.WithMaxBytes(maxQuoteBodyBytes),
		)
		if err != nil {
			responses.WriteStorefrontError(ctx, logg, w, err)
			return
		}

		quote, err := svc.Quote(ctx, req)
		if err != nil {
			responses.WriteStorefrontError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, quote)
	}
}
