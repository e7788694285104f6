package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const productsQuery = `*[_type == $type && !(_id in path("drafts.**"))]{
  _id,
  sku,
  title,
  description,
  tags,
  price,
  weight,
  dimensions,
  "active": coalesce(active, true)
}`

// Querier is satisfied by the Sanity client.
type Querier interface {
	Query(ctx context.Context, query string, params map[string]any, dest any) error
}

type store interface {
	ReleaseSKUs(ctx context.Context, products []models.CatalogProduct) (int64, error)
	Upsert(ctx context.Context, products []models.CatalogProduct) error
	DeactivateMissing(ctx context.Context, keep []string) (int64, error)
}

// TxRunner runs fn in one database transaction; satisfied by *db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type SyncerOption func(*Syncer)

// WithTransactions applies each sync's writes atomically through runner.
func WithTransactions(runner TxRunner) SyncerOption {
	return func(s *Syncer) {
		if runner == nil {
			return
		}
		s.atomic = func(ctx context.Context, fn func(store) error) error {
			return runner.WithTx(ctx, func(tx *gorm.DB) error {
				return fn(NewRepository(tx))
			})
		}
	}
}

// ProductDocument is the CMS projection consumed by the sync.
type ProductDocument struct {
	ID          string           `json:"_id"`
	SKU         string           `json:"sku"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Price       *decimal.Decimal `json:"price"`
	Weight      *float64         `json:"weight"`
	Dimensions  *struct {
		L float64 `json:"l"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"dimensions"`
	Active bool `json:"active"`
}

// SyncResult summarizes one sync run. Invalid aggregates per-document problems.
type SyncResult struct {
	Fetched     int
	Upserted    int
	Released    int64
	Deactivated int64
	Invalid     error
}

// Syncer mirrors CMS product documents into the catalog table. The CMS is only read.
type Syncer struct {
	source Querier
	store  store
	atomic func(ctx context.Context, fn func(store) error) error
	logg   *logger.Logger
	now    func() time.Time
}

func NewSyncer(source Querier, repo store, logg *logger.Logger, opts ...SyncerOption) *Syncer {
	s := &Syncer{source: source, store: repo, logg: logg, now: time.Now}
	s.atomic = func(ctx context.Context, fn func(store) error) error {
		return fn(s.store)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches every published product and upserts it. Rows holding a SKU that
// moved to another document are deleted first. Products that vanished from the
// CMS are deactivated only when the whole batch was valid.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	if s == nil || s.source == nil || s.store == nil {
		return result, pkgerrors.New(pkgerrors.CodeDependency, "catalog sync not configured")
	}

	var docs []ProductDocument
	if err := s.source.Query(ctx, productsQuery, map[string]any{"type": "product"}, &docs); err != nil {
		return result, err
	}
	result.Fetched = len(docs)

	syncedAt := s.now().UTC()
	products := make([]models.CatalogProduct, 0, len(docs))
	keep := make([]string, 0, len(docs))
	skuOwner := make(map[string]string, len(docs))
	for _, doc := range docs {
		product, err := toModel(doc, syncedAt)
		if err != nil {
			result.Invalid = multierr.Append(result.Invalid, err)
			continue
		}
		if other, dup := skuOwner[product.SKU]; dup {
			result.Invalid = multierr.Append(result.Invalid,
				fmt.Errorf("product %s: sku %s already used by %s", product.ID, product.SKU, other))
			continue
		}
		skuOwner[product.SKU] = product.ID
		products = append(products, product)
		keep = append(keep, product.ID)
	}

	var applied SyncResult
	err := s.atomic(ctx, func(tx store) error {
		applied = SyncResult{}
		released, err := tx.ReleaseSKUs(ctx, products)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release moved skus")
		}
		applied.Released = released

		if err := tx.Upsert(ctx, products); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert catalog products")
		}
		applied.Upserted = len(products)

		if result.Invalid != nil {
			return nil
		}
		deactivated, err := tx.DeactivateMissing(ctx, keep)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate missing products")
		}
		applied.Deactivated = deactivated
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Released = applied.Released
	result.Upserted = applied.Upserted
	result.Deactivated = applied.Deactivated

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"fetched":     result.Fetched,
			"upserted":    result.Upserted,
			"released":    result.Released,
			"deactivated": result.Deactivated,
			"invalid":     len(multierr.Errors(result.Invalid)),
		})
		s.logg.Info(ctx, "catalog.sync.complete")
	}
	return result, nil
}

func toModel(doc ProductDocument, syncedAt time.Time) (models.CatalogProduct, error) {
	id := strings.TrimSpace(doc.ID)
	sku := strings.TrimSpace(doc.SKU)
	title := strings.TrimSpace(doc.Title)
	switch {
	case id == "":
		return models.CatalogProduct{}, fmt.Errorf("product document without _id")
	case sku == "":
		return models.CatalogProduct{}, fmt.Errorf("product %s: sku is required", id)
	case title == "":
		return models.CatalogProduct{}, fmt.Errorf("product %s: title is required", id)
	}

	var priceCents int64
	if doc.Price != nil {
		if doc.Price.IsNegative() {
			return models.CatalogProduct{}, fmt.Errorf("product %s: negative price %s", id, doc.Price.String())
		}
		priceCents = types.CentsFromDecimal(*doc.Price)
	}

	product := models.CatalogProduct{
		ID:          id,
		SKU:         sku,
		Title:       title,
		Description: strings.TrimSpace(doc.Description),
		Tags:        models.JoinTags(doc.Tags),
		PriceCents:  priceCents,
		WeightOz:    positive(doc.Weight),
		Active:      doc.Active,
		SyncedAt:    syncedAt,
	}
	if doc.Dimensions != nil {
		product.LengthIn = positive(&doc.Dimensions.L)
		product.WidthIn = positive(&doc.Dimensions.W)
		product.HeightIn = positive(&doc.Dimensions.H)
	}
	return product, nil
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}
