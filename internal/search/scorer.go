package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

// Per-term weights.
const (
	scoreSKU         = 10
	scoreTitleWord   = 5
	scoreTitlePart   = 3
	scoreTag         = 2
	scoreDescription = 1
)

// Result is one ranked product.
type Result struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// Terms lower-cases the query and splits it on whitespace, dropping duplicates.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// Score sums the weights of every term against one product.
func Score(product models.CatalogProduct, terms []string) int {
	sku := strings.ToLower(product.SKU)
	title := strings.ToLower(product.Title)
	titleWords := words(title)
	description := strings.ToLower(product.Description)
	tags := product.TagList()

	total := 0
	for _, term := range terms {
		if term == sku {
			total += scoreSKU
		}
		if _, ok := titleWords[term]; ok {
			total += scoreTitleWord
		} else if strings.Contains(title, term) {
			total += scoreTitlePart
		}
		for _, tag := range tags {
			if strings.EqualFold(tag, term) {
				total += scoreTag
				break
			}
		}
		if strings.Contains(description, term) {
			total += scoreDescription
		}
	}
	return total
}

// Rank scores products, drops non-matches and orders by score, title, then id.
func Rank(products []models.CatalogProduct, terms []string, limit int) []Result {
	results := make([]Result, 0)
	for _, p := range products {
		if s := Score(p, terms); s > 0 {
			results = append(results, Result{ID: p.ID, SKU: p.SKU, Title: p.Title, Score: s})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func words(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		out[w] = struct{}{}
	}
	return out
}
