package models

import (
	"strings"
	"time"
)

// CatalogProduct mirrors the CMS product metadata the storefront needs server-side.
type CatalogProduct struct {
	ID          string    `gorm:"column:id;primaryKey"`
	SKU         string    `gorm:"column:sku;not null"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description"`
	Tags        string    `gorm:"column:tags"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	WeightOz    *float64  `gorm:"column:weight_oz"`
	LengthIn    *float64  `gorm:"column:length_in"`
	WidthIn     *float64  `gorm:"column:width_in"`
	HeightIn    *float64  `gorm:"column:height_in"`
	Active      bool      `gorm:"column:active;not null"`
	SyncedAt    time.Time `gorm:"column:synced_at;not null"`
}

func (CatalogProduct) TableName() string {
	return "catalog_products"
}

// TagList splits the stored comma-separated tags.
func (p CatalogProduct) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// JoinTags normalizes tags into the stored representation.
func JoinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(tag, ",", " ")))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return strings.Join(out, ",")
}
