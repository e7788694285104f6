package shipping

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
)

// Service computes shipping quotes for storefront carts.
type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
}

type service struct {
	parcels *ParcelBuilder
	rates   *RateSource
	rules   Rules
	metrics *metrics.ShippingMetrics
	logg    *logger.Logger
}

// NewService wires the quote pipeline: normalize, build parcel, fetch rates, assemble.
func NewService(parcels *ParcelBuilder, rates *RateSource, rules Rules, m *metrics.ShippingMetrics, logg *logger.Logger) (Service, error) {
	if parcels == nil {
		return nil, fmt.Errorf("parcel builder required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate source required")
	}
	if rules.FreeShippingThresholdCents < 0 {
		return nil, fmt.Errorf("free shipping threshold must not be negative")
	}
	return &service{parcels: parcels, rates: rates, rules: rules, metrics: m, logg: logg}, nil
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	quote, err := s.quote(ctx, req)
	if err != nil {
		s.metrics.IncQuote(string(pkgerrors.CodeOf(err)))
		return Quote{}, err
	}
	s.metrics.IncQuote("ok")
	return quote, nil
}

func (s *service) quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	normalized, err := Normalize(req)
	if err != nil {
		return Quote{}, err
	}

	built := s.parcels.Build(ctx, normalized.Items)

	result, err := s.rates.Fetch(ctx, built.Parcel, normalized.Destination)
	if err != nil {
		return Quote{}, err
	}

	quote, err := Assemble(result.Options, built.SubtotalCents, s.rules)
	if err != nil {
		return Quote{}, err
	}
	quote.Source = result.Source
	quote.Parcel = built.Parcel

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"source":        quote.Source,
			"options":       len(quote.Options),
			"free_shipping": quote.FreeShipping,
			"country":       normalized.Destination.Country,
			"items":         len(normalized.Items),
		}), "shipping.quote.assembled")
	}
	return quote, nil
}
