package shipping

import (
	"context"
	"math"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// minParcelWeightOz is the lightest parcel carriers will rate.
const minParcelWeightOz = 1.0

// CatalogLookup resolves product metadata by id or sku.
type CatalogLookup interface {
	FindByKeys(ctx context.Context, keys []string) (map[string]models.CatalogProduct, error)
}

// ParcelDefaults apply to items without weight or dimensions, and to empty carts.
type ParcelDefaults struct {
	ItemWeightOz float64
	LengthIn     float64
	WidthIn      float64
	HeightIn     float64
}

// ParcelResult is the aggregate parcel and the cart subtotal in minor units.
type ParcelResult struct {
	Parcel        Parcel
	SubtotalCents int64
}

type ParcelBuilder struct {
	defaults ParcelDefaults
	catalog  CatalogLookup
	logg     *logger.Logger
}

// NewParcelBuilder returns a builder; catalog may be nil.
func NewParcelBuilder(defaults ParcelDefaults, catalog CatalogLookup, logg *logger.Logger) *ParcelBuilder {
	return &ParcelBuilder{defaults: defaults, catalog: catalog, logg: logg}
}

// Build stacks cart items into one parcel: weights and heights add up,
// length and width take the largest item.
func (b *ParcelBuilder) Build(ctx context.Context, items []CartItem) ParcelResult {
	if len(items) == 0 {
		return ParcelResult{Parcel: b.defaultParcel()}
	}

	products := b.lookup(ctx, items)

	var (
		parcel   Parcel
		subtotal int64
	)
	for _, item := range items {
		product, found := productFor(products, item)
		qty := float64(item.Quantity)

		parcel.WeightOz += b.itemWeight(item, product, found) * qty

		dims := b.itemDimensions(item, product, found)
		parcel.LengthIn = math.Max(parcel.LengthIn, dims.L)
		parcel.WidthIn = math.Max(parcel.WidthIn, dims.W)
		parcel.HeightIn += dims.H * qty

		switch {
		case item.PriceCents != nil:
			subtotal += *item.PriceCents * int64(item.Quantity)
		case found:
			subtotal += product.PriceCents * int64(item.Quantity)
		}
	}

	if parcel.WeightOz < minParcelWeightOz {
		parcel.WeightOz = minParcelWeightOz
	}
	parcel.WeightOz = round2(parcel.WeightOz)
	parcel.LengthIn = round2(parcel.LengthIn)
	parcel.WidthIn = round2(parcel.WidthIn)
	parcel.HeightIn = round2(parcel.HeightIn)

	return ParcelResult{Parcel: parcel, SubtotalCents: subtotal}
}

func (b *ParcelBuilder) defaultParcel() Parcel {
	return Parcel{
		WeightOz: math.Max(b.defaults.ItemWeightOz, minParcelWeightOz),
		LengthIn: b.defaults.LengthIn,
		WidthIn:  b.defaults.WidthIn,
		HeightIn: b.defaults.HeightIn,
	}
}

func (b *ParcelBuilder) lookup(ctx context.Context, items []CartItem) map[string]models.CatalogProduct {
	if b.catalog == nil {
		return nil
	}
	keys := make([]string, 0, len(items)*2)
	for _, item := range items {
		keys = append(keys, item.Keys()...)
	}
	products, err := b.catalog.FindByKeys(ctx, keys)
	if err != nil {
		if b.logg != nil {
			b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "shipping.catalog.lookup_failed")
		}
		return nil
	}
	return products
}

func productFor(products map[string]models.CatalogProduct, item CartItem) (models.CatalogProduct, bool) {
	for _, key := range item.Keys() {
		if product, ok := products[key]; ok {
			return product, true
		}
	}
	return models.CatalogProduct{}, false
}

func (b *ParcelBuilder) itemWeight(item CartItem, product models.CatalogProduct, found bool) float64 {
	if item.WeightOz != nil {
		return *item.WeightOz
	}
	if found && product.WeightOz != nil && *product.WeightOz > 0 {
		return *product.WeightOz
	}
	return b.defaults.ItemWeightOz
}

func (b *ParcelBuilder) itemDimensions(item CartItem, product models.CatalogProduct, found bool) Dimensions {
	if item.Dimensions != nil {
		return *item.Dimensions
	}
	if found && product.LengthIn != nil && product.WidthIn != nil && product.HeightIn != nil {
		return Dimensions{L: *product.LengthIn, W: *product.WidthIn, H: *product.HeightIn}
	}
	return Dimensions{L: b.defaults.LengthIn, W: b.defaults.WidthIn, H: b.defaults.HeightIn}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
