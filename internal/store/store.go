// Package store persists the reference catalog and the comparison history.
package store

import (
	"context"

	"github.com/d4tools/loothound/internal/model"
)

// CatalogData bundles the four reference collections for load/save.
type CatalogData struct {
	Affixes   []model.CatalogAffix
	Aspects   []model.CatalogAspect
	ItemTypes []model.ItemType
	Classes   []model.Class
}

// ComparisonFilter specifies criteria for listing comparison history.
type ComparisonFilter struct {
	BuildName string `json:"build_name,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Store defines the persistence interface around the comparison core.
type Store interface {
	// Catalog
	SaveCatalog(ctx context.Context, data *CatalogData) error
	LoadCatalog(ctx context.Context) (*CatalogData, error)

	// Comparison history
	SaveComparison(ctx context.Context, res *model.ComparisonResult) error
	ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
