package search

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type productLister interface {
	ListActive(ctx context.Context) ([]models.CatalogProduct, error)
}

// Response is the search payload.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

type Service interface {
	Search(ctx context.Context, query string, limit int) (Response, error)
}

type service struct {
	products productLister
}

func NewService(products productLister) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	return &service{products: products}, nil
}

// Search ranks active catalog products against the query. A zero limit means DefaultLimit.
func (s *service) Search(ctx context.Context, query string, limit int) (Response, error) {
	query = strings.TrimSpace(query)
	terms := Terms(query)
	if len(terms) == 0 {
		return Response{}, pkgerrors.New(pkgerrors.CodeValidation, "query is required").WithDetails(map[string]string{"q": "is required"})
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0 || limit > MaxLimit:
		return Response{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", MaxLimit)).
			WithDetails(map[string]string{"limit": fmt.Sprintf("must be between 1 and %d", MaxLimit)})
	}

	products, err := s.products.ListActive(ctx)
	if err != nil {
		return Response{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog products")
	}

	return Response{Query: query, Results: Rank(products, terms, limit)}, nil
}
