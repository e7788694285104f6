package shipping

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/types"
	"github.com/shopspring/decimal"
)

// Fallback table origins, in precedence order.
const (
	FallbackFromCMS     = "cms"
	FallbackFromEnv     = "env"
	FallbackFromDefault = "default"
)

const shippingRatesQuery = `*[_type == "shippingRate" && coalesce(active, true) == true] | order(carrier asc, service asc){
  carrier,
  service,
  baseRate,
  perPoundRate,
  estimatedDays,
  countries
}`

// FallbackRate prices a service as BaseCents plus PerPoundCents for every started pound.
// An entry without countries is a catch-all for countries no other entry names.
type FallbackRate struct {
	Carrier       string
	Service       string
	BaseCents     int64
	PerPoundCents int64
	EstimatedDays int
	Countries     []string
}

func (r FallbackRate) servesExplicitly(country string) bool {
	for _, c := range r.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// FallbackTable is an immutable rate table used when live rates are unavailable.
type FallbackTable struct {
	entries []FallbackRate
}

// NewFallbackTable validates and copies entries.
func NewFallbackTable(entries []FallbackRate) (FallbackTable, error) {
	copied := make([]FallbackRate, 0, len(entries))
	for i, entry := range entries {
		entry.Carrier = strings.TrimSpace(entry.Carrier)
		entry.Service = strings.TrimSpace(entry.Service)
		if entry.Carrier == "" || entry.Service == "" {
			return FallbackTable{}, fmt.Errorf("fallback rate %d: carrier and service are required", i)
		}
		if entry.BaseCents < 0 || entry.PerPoundCents < 0 {
			return FallbackTable{}, fmt.Errorf("fallback rate %d: amounts must not be negative", i)
		}
		if entry.EstimatedDays < 0 {
			return FallbackTable{}, fmt.Errorf("fallback rate %d: estimated days must not be negative", i)
		}
		countries := make([]string, 0, len(entry.Countries))
		for _, c := range entry.Countries {
			if trimmed := strings.ToUpper(strings.TrimSpace(c)); trimmed != "" {
				countries = append(countries, trimmed)
			}
		}
		entry.Countries = countries
		copied = append(copied, entry)
	}
	return FallbackTable{entries: copied}, nil
}

// DefaultFallbackTable is the built-in table used when nothing is configured.
func DefaultFallbackTable() FallbackTable {
	table, _ := NewFallbackTable([]FallbackRate{
		{Carrier: "USPS", Service: "Ground Advantage", BaseCents: 599, PerPoundCents: 100, EstimatedDays: 5, Countries: []string{"US"}},
		{Carrier: "USPS", Service: "Priority Mail", BaseCents: 899, PerPoundCents: 150, EstimatedDays: 3, Countries: []string{"US"}},
		{Carrier: "UPS", Service: "Ground", BaseCents: 1099, PerPoundCents: 125, EstimatedDays: 5, Countries: []string{"US"}},
		{Carrier: "USPS", Service: "Priority Mail International", BaseCents: 2999, PerPoundCents: 450, EstimatedDays: 10},
		{Carrier: "DHL", Service: "Express Worldwide", BaseCents: 4999, PerPoundCents: 600, EstimatedDays: 4},
	})
	return table
}

func (t FallbackTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table.
func (t FallbackTable) Entries() []FallbackRate {
	out := make([]FallbackRate, len(t.entries))
	for i, entry := range t.entries {
		entry.Countries = append([]string(nil), entry.Countries...)
		out[i] = entry
	}
	return out
}

// Quote prices the parcel for a country. Entries naming the country win over catch-alls.
func (t FallbackTable) Quote(parcel Parcel, country, currency string) []ShippingOption {
	country = strings.ToUpper(strings.TrimSpace(country))
	pounds := int64(math.Ceil(parcel.WeightOz / 16))
	if pounds < 1 {
		pounds = 1
	}

	var explicit, catchAll []ShippingOption
	for _, entry := range t.entries {
		option := ShippingOption{
			Carrier:  entry.Carrier,
			Service:  entry.Service,
			Rate:     entry.BaseCents + entry.PerPoundCents*pounds,
			Currency: currency,
			Source:   SourceFallback,
		}
		if entry.EstimatedDays > 0 {
			days := entry.EstimatedDays
			option.EstimatedDays = &days
		}
		switch {
		case len(entry.Countries) == 0:
			catchAll = append(catchAll, option)
		case entry.servesExplicitly(country):
			explicit = append(explicit, option)
		}
	}

	if len(explicit) > 0 {
		return SortOptions(explicit)
	}
	return SortOptions(catchAll)
}

// FallbackFromConfig converts the env-configured table.
func FallbackFromConfig(rates []config.FallbackRate) (FallbackTable, error) {
	entries := make([]FallbackRate, 0, len(rates))
	for _, r := range rates {
		entries = append(entries, FallbackRate{
			Carrier:       r.Carrier,
			Service:       r.Service,
			BaseCents:     r.BaseCents,
			PerPoundCents: r.PerPoundCents,
			EstimatedDays: r.EstimatedDays,
			Countries:     r.Countries,
		})
	}
	return NewFallbackTable(entries)
}

// RateQuerier runs CMS queries; satisfied by the Sanity client.
type RateQuerier interface {
	Query(ctx context.Context, query string, params map[string]any, dest any) error
}

type cmsShippingRate struct {
	Carrier       string           `json:"carrier"`
	Service       string           `json:"service"`
	BaseRate      *decimal.Decimal `json:"baseRate"`
	PerPoundRate  *decimal.Decimal `json:"perPoundRate"`
	EstimatedDays int              `json:"estimatedDays"`
	Countries     []string         `json:"countries"`
}

// LoadCMSFallback reads shippingRate documents. CMS amounts are major units.
func LoadCMSFallback(ctx context.Context, q RateQuerier) (FallbackTable, error) {
	var docs []cmsShippingRate
	if err := q.Query(ctx, shippingRatesQuery, nil, &docs); err != nil {
		return FallbackTable{}, err
	}
	entries := make([]FallbackRate, 0, len(docs))
	for _, doc := range docs {
		entry := FallbackRate{
			Carrier:       doc.Carrier,
			Service:       doc.Service,
			EstimatedDays: doc.EstimatedDays,
			Countries:     doc.Countries,
		}
		if doc.BaseRate != nil {
			entry.BaseCents = types.CentsFromDecimal(*doc.BaseRate)
		}
		if doc.PerPoundRate != nil {
			entry.PerPoundCents = types.CentsFromDecimal(*doc.PerPoundRate)
		}
		entries = append(entries, entry)
	}
	return NewFallbackTable(entries)
}

// ResolveFallbackTable picks the first non-empty table from the CMS, then env
// configuration, then the built-in default. cms may be nil.
func ResolveFallbackTable(ctx context.Context, cms RateQuerier, envRates []config.FallbackRate, logg *logger.Logger) (FallbackTable, string) {
	if cms != nil {
		table, err := LoadCMSFallback(ctx, cms)
		switch {
		case err != nil:
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "shipping.fallback.cms_unavailable")
			}
		case table.Len() > 0:
			return table, FallbackFromCMS
		}
	}

	if len(envRates) > 0 {
		table, err := FallbackFromConfig(envRates)
		if err == nil && table.Len() > 0 {
			return table, FallbackFromEnv
		}
		if err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "shipping.fallback.env_invalid")
		}
	}

	return DefaultFallbackTable(), FallbackFromDefault
}
