package shipping

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
)

// DefaultQuoteTimeout bounds the live carrier call.
const DefaultQuoteTimeout = 5 * time.Second

// LiveRates quotes a parcel against a carrier aggregator.
type LiveRates interface {
	Name() string
	Rates(ctx context.Context, req RateRequest) ([]ShippingOption, error)
}

// RateResult is a sorted, non-empty option list and where it came from.
type RateResult struct {
	Options []ShippingOption
	Source  string
}

type RateSourceOptions struct {
	Timeout  time.Duration
	Currency string
	Metrics  *metrics.ShippingMetrics
	Logger   *logger.Logger
}

// RateSource prefers live rates and substitutes the fallback table when the
// live provider is missing, failing, slow, or returns nothing.
type RateSource struct {
	live     LiveRates
	fallback FallbackTable
	timeout  time.Duration
	currency string
	metrics  *metrics.ShippingMetrics
	logg     *logger.Logger
}

// NewRateSource builds a rate source. live may be nil when no provider is configured.
func NewRateSource(live LiveRates, fallback FallbackTable, opts RateSourceOptions) *RateSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &RateSource{
		live:     live,
		fallback: fallback,
		timeout:  timeout,
		currency: currency,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
	}
}

type liveResult struct {
	options []ShippingOption
	err     error
}

// Fetch returns rates for the parcel. It fails only when no source can price the destination.
func (s *RateSource) Fetch(ctx context.Context, parcel Parcel, dest Destination) (RateResult, error) {
	if s.live == nil {
		return s.useFallback(ctx, parcel, dest, metrics.OutcomeUnconfigured, nil)
	}

	options, err := s.callLive(ctx, RateRequest{Parcel: parcel, Destination: dest})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return s.useFallback(ctx, parcel, dest, metrics.OutcomeTimeout, err)
	case err != nil:
		return s.useFallback(ctx, parcel, dest, metrics.OutcomeUpstreamError, err)
	case len(options) == 0:
		return s.useFallback(ctx, parcel, dest, metrics.OutcomeEmpty, nil)
	}

	options = s.inCurrency(ctx, options)
	if len(options) == 0 {
		return s.useFallback(ctx, parcel, dest, metrics.OutcomeCurrencyMismatch, nil)
	}

	s.metrics.IncRateSource(SourceLive, metrics.OutcomeLive)
	return RateResult{Options: SortOptions(options), Source: SourceLive}, nil
}

// inCurrency keeps the options priced in the configured currency, since rates
// in different minor units cannot be compared. A blank currency means the configured one.
func (s *RateSource) inCurrency(ctx context.Context, options []ShippingOption) []ShippingOption {
	kept := make([]ShippingOption, 0, len(options))
	var dropped []string
	for _, opt := range options {
		currency := strings.ToUpper(strings.TrimSpace(opt.Currency))
		if currency == "" {
			currency = s.currency
		}
		if currency != s.currency {
			dropped = append(dropped, opt.Carrier+" "+opt.Service+" ("+currency+")")
			continue
		}
		opt.Currency = currency
		opt.Source = SourceLive
		kept = append(kept, opt)
	}
	if len(dropped) > 0 && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"currency": s.currency,
			"dropped":  dropped,
		}), "shipping.rates.currency_mismatch")
	}
	return kept
}

// callLive runs the provider in its own goroutine so the deadline holds even
// when the provider ignores cancellation.
func (s *RateSource) callLive(ctx context.Context, req RateRequest) ([]ShippingOption, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan liveResult, 1)
	start := time.Now()
	go func() {
		options, err := s.live.Rates(callCtx, req)
		done <- liveResult{options: options, err: err}
	}()

	select {
	case res := <-done:
		s.metrics.ObserveLive(s.live.Name(), time.Since(start))
		if res.err != nil && callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return res.options, res.err
	case <-callCtx.Done():
		s.metrics.ObserveLive(s.live.Name(), time.Since(start))
		return nil, callCtx.Err()
	}
}

func (s *RateSource) useFallback(ctx context.Context, parcel Parcel, dest Destination, outcome string, cause error) (RateResult, error) {
	if s.logg != nil {
		fields := map[string]any{
			"reason":  outcome,
			"country": dest.Country,
		}
		if cause != nil {
			fields["error"] = cause.Error()
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "shipping.rates.fallback")
	}

	options := s.fallback.Quote(parcel, dest.Country, s.currency)
	if len(options) > 0 {
		s.metrics.IncRateSource(SourceFallback, outcome)
		return RateResult{Options: options, Source: SourceFallback}, nil
	}

	s.metrics.IncRateSource("none", outcome)
	details := map[string]string{"country": dest.Country, "postalCode": dest.PostalCode}
	if outcome == metrics.OutcomeEmpty || outcome == metrics.OutcomeCurrencyMismatch {
		return RateResult{}, pkgerrors.New(pkgerrors.CodeUnserviceable, "no shipping options available for destination").WithDetails(details)
	}
	if cause == nil {
		cause = errors.New("live rates " + outcome)
	}
	return RateResult{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, "no rate source available for destination")
}

// SortOptions orders options by rate, then transit days (unknown last), carrier and service.
// The input slice is sorted in place and returned.
func SortOptions(options []ShippingOption) []ShippingOption {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Rate != b.Rate {
			return a.Rate < b.Rate
		}
		if da, db := daysOrMax(a.EstimatedDays), daysOrMax(b.EstimatedDays); da != db {
			return da < db
		}
		if a.Carrier != b.Carrier {
			return a.Carrier < b.Carrier
		}
		return a.Service < b.Service
	})
	return options
}

func daysOrMax(days *int) int {
	if days == nil {
		return int(^uint(0) >> 1)
	}
	return *days
}
