package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// upsertBatchSize keeps parameter counts under sqlite's bind limit.
	upsertBatchSize = 200
	lookupChunkSize = 500
)

// Repository persists catalog product metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByKeys returns active products whose id or sku matches one of keys.
// The map is keyed by both id and sku.
func (r *Repository) FindByKeys(ctx context.Context, keys []string) (map[string]models.CatalogProduct, error) {
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	result := make(map[string]models.CatalogProduct, len(cleaned))
	if len(cleaned) == 0 {
		return result, nil
	}

	var rows []models.CatalogProduct
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("id IN ? OR sku IN ?", cleaned, cleaned).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ID] = row
		result[row.SKU] = row
	}
	return result, nil
}

// ListActive returns every active product ordered by title then id.
func (r *Repository) ListActive(ctx context.Context) ([]models.CatalogProduct, error) {
	var rows []models.CatalogProduct
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("title ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert inserts products or overwrites the stored copy keyed by id.
func (r *Repository) Upsert(ctx context.Context, products []models.CatalogProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(products, upsertBatchSize).Error
}

// DeactivateMissing flags products whose id is not in keep as inactive.
func (r *Repository) DeactivateMissing(ctx context.Context, keep []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CatalogProduct{}).
		Where("active = ?", true)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	res := query.Update("active", false)
	return res.RowsAffected, res.Error
}

// ReleaseSKUs deletes stored rows whose SKU the batch assigns to a different id,
// so the unique sku index does not reject the following Upsert.
func (r *Repository) ReleaseSKUs(ctx context.Context, products []models.CatalogProduct) (int64, error) {
	owner := make(map[string]string, len(products))
	skus := make([]string, 0, len(products))
	for _, p := range products {
		if _, seen := owner[p.SKU]; !seen {
			skus = append(skus, p.SKU)
		}
		owner[p.SKU] = p.ID
	}

	var stale []string
	for start := 0; start < len(skus); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(skus))
		var rows []models.CatalogProduct
		if err := r.db.WithContext(ctx).
			Select("id", "sku").
			Where("sku IN ?", skus[start:end]).
			Find(&rows).Error; err != nil {
			return 0, err
		}
		for _, row := range rows {
			if owner[row.SKU] != row.ID {
				stale = append(stale, row.ID)
			}
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Where("id IN ?", stale).Delete(&models.CatalogProduct{})
	return res.RowsAffected, res.Error
}
